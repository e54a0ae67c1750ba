package main

import (
	"fmt"
	"os"

	"github.com/eduquery-ai/eduquery/internal/cli"
	"github.com/eduquery-ai/eduquery/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "eduquery",
		Short: "EduQuery CLI - Ask questions and manage escalations",
		Long: `EduQuery CLI lets students ask questions and teachers manage escalations.

Environment variables:
  EDUQUERY_SESSION_TOKEN   Session token for authentication (set by 'eduquery login')
  EDUQUERY_API_URL         API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("token", "", "Session token for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.LoginCmd())
	rootCmd.AddCommand(client.LogoutCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.PendingCmd())
	rootCmd.AddCommand(client.AnswerCmd())
	rootCmd.AddCommand(client.ClearCmd())
	rootCmd.AddCommand(client.DocsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
