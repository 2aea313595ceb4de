package client

import (
	"fmt"
	"strings"

	"github.com/Ftffxu/ephemeral-chatty/internal/models"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <sessionId> <text...>",
	Short: "Send a message to a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{"content": strings.Join(args[1:], " ")}

		var sent models.Message
		if err := doRequest("POST", "/sessions/"+args[0]+"/messages", body, &sent); err != nil {
			return err
		}
		fmt.Printf("[%s] you: %s\n", formatTimestamp(sent.Timestamp), sent.Content)
		return nil
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <sessionId>",
	Short: "Show a session's messages, decrypted for you",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var session models.ChatSession
		if err := doRequest("GET", "/sessions/"+args[0], nil, &session); err != nil {
			return err
		}
		names := make(map[string]string, len(session.Participants))
		for _, p := range session.Participants {
			names[p.ID] = p.Username
		}

		var messages []models.Message
		if err := doRequest("GET", "/sessions/"+args[0]+"/messages", nil, &messages); err != nil {
			return err
		}

		if len(messages) == 0 {
			fmt.Println("No messages yet.")
			return nil
		}
		for _, m := range messages {
			sender := names[m.SenderID]
			if sender == "" {
				sender = m.SenderID
			}
			fmt.Printf("[%s] %s: %s\n", formatTimestamp(m.Timestamp), sender, m.Content)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd, messagesCmd)
}
