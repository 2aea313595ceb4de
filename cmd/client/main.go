package main

import (
	"fmt"
	"os"

	"github.com/Ftffxu/ephemeral-chatty/internal/client"
)

func main() {
	if err := client.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
