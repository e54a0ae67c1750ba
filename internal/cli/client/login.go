package client

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// LoginCmd returns the login command
func LoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store a session token",
		Long:  "Authenticate against the server and store the session token in the global config",
		Args:  cobra.ExactArgs(1),
		RunE:  runLogin,
	}

	cmd.Flags().String("api-url", "", "Server URL (default http://localhost:8080)")
	cmd.Flags().String("password", "", "Password (prompted if not given)")

	return cmd
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

func runLogin(cmd *cobra.Command, args []string) error {
	username := args[0]

	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	}

	baseURL, _ := cmd.Flags().GetString("api-url")
	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	apiClient, err := NewAPIClientWithConfig("", baseURL)
	if err != nil {
		return err
	}

	resp, err := apiClient.Post("/auth/login", loginRequest{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	var out loginResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}

	if err := SaveGlobalConfig(&GlobalConfig{
		SessionToken: out.Token,
		APIURL:       baseURL,
		Username:     out.User.Username,
		Role:         out.User.Role,
	}); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s [%s]\n", out.User.Username, out.User.Role)
	return nil
}

// LogoutCmd returns the logout command
func LogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and discard the stored session",
		RunE:  runLogout,
	}
}

func runLogout(cmd *cobra.Command, args []string) error {
	apiClient, err := NewAPIClient()
	if err == nil {
		// Best effort: revoke the session server side before discarding it
		if _, err := apiClient.Post("/auth/logout", nil); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to revoke session: %v\n", err)
		}
	}

	if err := DeleteGlobalConfig(); err != nil {
		return err
	}

	fmt.Println("Logged out")
	return nil
}
