package client

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *Config
)

var rootCmd = &cobra.Command{
	Use:   "chatty",
	Short: "Ephemeral chat CLI",
	Long:  "Talk over ephemeral, end-to-end 'encrypted' chat sessions. Ending a session destroys its messages.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/ephemeral-chatty/config.json)")
	rootCmd.PersistentFlags().String("server", "", "server URL (overrides config)")
}

func initConfig() {
	var err error
	path := cfgFile
	if path == "" {
		path, err = GetConfigPath()
		if err != nil {
			fmt.Println("Error getting config path:", err)
			os.Exit(1)
		}
	}

	cfg, err = LoadConfig(path)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	if server, _ := rootCmd.PersistentFlags().GetString("server"); server != "" {
		cfg.ServerURL = server
	}
}

func saveConfig() error {
	path := cfgFile
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return err
		}
	}
	return SaveConfig(path, cfg)
}
