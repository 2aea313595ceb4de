package client

import (
	"fmt"
	"os"

	"github.com/Ftffxu/ephemeral-chatty/internal/models"
	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Print your shareable id, with a QR code for easy scanning",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var user models.User
		if err := doRequest("GET", "/me", nil, &user); err != nil {
			return err
		}

		fmt.Println("Your id:", user.UniqueID)
		noQR, _ := cmd.Flags().GetBool("no-qr")
		if !noQR {
			qrterminal.GenerateWithConfig(user.UniqueID, qrterminal.Config{
				Level:     qrterminal.L,
				Writer:    os.Stdout,
				BlackChar: qrterminal.BLACK,
				WhiteChar: qrterminal.WHITE,
				QuietZone: 1,
			})
		}
		return nil
	},
}

func init() {
	idCmd.Flags().Bool("no-qr", false, "skip the QR code")
	rootCmd.AddCommand(idCmd)
}
