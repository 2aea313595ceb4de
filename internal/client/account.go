package client

import (
	"fmt"

	"github.com/Ftffxu/ephemeral-chatty/internal/models"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <email> <username> <password>",
	Short: "Start registration and receive a verification code by email",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			MaskedEmail string `json:"maskedEmail"`
		}
		body := map[string]string{"email": args[0], "username": args[1], "password": args[2]}
		if err := doRequest("POST", "/register", body, &resp); err != nil {
			return err
		}
		fmt.Printf("Verification code sent to %s\n", resp.MaskedEmail)
		fmt.Println("Run 'chatty verify' with the code to finish.")
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <email> <code>",
	Short: "Finish registration with the emailed code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var user models.User
		body := map[string]string{"email": args[0], "otp": args[1]}
		if err := doRequest("POST", "/verify", body, &user); err != nil {
			return err
		}
		rememberUser(user)
		if err := saveConfig(); err != nil {
			return err
		}
		fmt.Printf("Welcome, %s. Your id is %s; share it so others can reach you.\n", user.Username, user.UniqueID)
		return nil
	},
}

var resendCmd = &cobra.Command{
	Use:   "resend <email>",
	Short: "Request a fresh verification code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			MaskedEmail string `json:"maskedEmail"`
		}
		if err := doRequest("POST", "/resend", map[string]string{"email": args[0]}, &resp); err != nil {
			return err
		}
		fmt.Printf("New code sent to %s\n", resp.MaskedEmail)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Log in and store the session cookie",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var user models.User
		body := map[string]string{"email": args[0], "password": args[1]}
		if err := doRequest("POST", "/login", body, &user); err != nil {
			return err
		}
		rememberUser(user)
		if err := saveConfig(); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (%s)\n", user.Username, user.UniqueID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the session cookie",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doRequest("POST", "/logout", nil, nil); err != nil {
			return err
		}
		cfg.Cookie = ""
		cfg.UserID = ""
		cfg.Username = ""
		cfg.UniqueID = ""
		if err := saveConfig(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var user models.User
		if err := doRequest("GET", "/me", nil, &user); err != nil {
			return err
		}
		fmt.Printf("%s <%s> id %s\n", user.Username, user.Email, user.UniqueID)
		return nil
	},
}

func rememberUser(user models.User) {
	cfg.UserID = user.ID
	cfg.Username = user.Username
	cfg.UniqueID = user.UniqueID
}

func init() {
	rootCmd.AddCommand(registerCmd, verifyCmd, resendCmd, loginCmd, logoutCmd, whoamiCmd)
}
