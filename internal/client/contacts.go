package client

import (
	"fmt"

	"github.com/Ftffxu/ephemeral-chatty/internal/models"
	"github.com/spf13/cobra"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage saved contacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var contacts []models.Contact
		if err := doRequest("GET", "/contacts", nil, &contacts); err != nil {
			return err
		}

		if len(contacts) == 0 {
			fmt.Println("No saved contacts.")
			return nil
		}
		for _, c := range contacts {
			fmt.Printf("%s  %s\n", c.ID, c.Name)
		}
		return nil
	},
}

var contactsSaveCmd = &cobra.Command{
	Use:   "save <id> <name>",
	Short: "Save or rename a contact",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		contact := models.Contact{ID: args[0], Name: args[1]}
		if err := doRequest("POST", "/contacts", contact, nil); err != nil {
			return err
		}
		fmt.Printf("Saved %s as %s\n", contact.ID, contact.Name)
		return nil
	},
}

var contactsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doRequest("DELETE", "/contacts/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

func init() {
	contactsCmd.AddCommand(contactsSaveCmd, contactsDeleteCmd)
	rootCmd.AddCommand(contactsCmd)
}
