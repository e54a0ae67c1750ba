package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask a question",
		Long:  "Submit a question. Covered questions are answered immediately; the rest go to your teacher",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Decision     string  `json:"decision"`
	Answer       string  `json:"answer"`
	Confidence   float64 `json:"confidence"`
	EscalationID string  `json:"escalation_id,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	outputFormat, _ := cmd.Flags().GetString("output")

	apiClient, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := apiClient.Post("/questions", askRequest{Question: question})
	if err != nil {
		return fmt.Errorf("failed to ask question: %w", err)
	}

	var out askResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Println(out.Answer)
	if out.Decision == "escalate" && out.EscalationID != "" {
		fmt.Printf("\n(escalated to your teacher, reference: %s)\n", out.EscalationID)
	}

	return nil
}
