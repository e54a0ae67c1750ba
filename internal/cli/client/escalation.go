package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// PendingCmd returns the pending command (teacher only)
func PendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List questions waiting for an answer",
		Long:  "List escalated student questions that have not been answered yet (teacher only)",
		RunE:  runPending,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().Bool("all", false, "Include answered escalations")

	return cmd
}

type escalationItem struct {
	ID           string  `json:"id"`
	QuestionText string  `json:"question_text"`
	Confidence   float64 `json:"confidence"`
	Status       string  `json:"status"`
	Answer       string  `json:"answer,omitempty"`
	SubmittedAt  string  `json:"submitted_at"`
	AnsweredAt   string  `json:"answered_at,omitempty"`
}

type escalationList struct {
	Items []escalationItem `json:"items"`
}

func runPending(cmd *cobra.Command, args []string) error {
	outputFormat, _ := cmd.Flags().GetString("output")
	all, _ := cmd.Flags().GetBool("all")

	apiClient, err := NewAPIClient()
	if err != nil {
		return err
	}

	path := "/escalations"
	if all {
		path += "?status=all"
	}

	resp, err := apiClient.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list escalations: %w", err)
	}

	var out escalationList
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(out.Items) == 0 {
		fmt.Println("No pending questions")
		return nil
	}

	for _, item := range out.Items {
		fmt.Printf("%s [%s, confidence %.2f] %s\n", item.ID, item.Status, item.Confidence, item.QuestionText)
		if item.Answer != "" {
			fmt.Printf("    answer: %s\n", item.Answer)
		}
	}

	return nil
}

// AnswerCmd returns the answer command (teacher only)
func AnswerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answer <escalation-id> <answer...>",
		Short: "Answer an escalated question",
		Long:  "Provide the answer for a pending escalated question (teacher only)",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runAnswer,
	}

	return cmd
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func runAnswer(cmd *cobra.Command, args []string) error {
	escalationID := args[0]
	answer := strings.Join(args[1:], " ")

	apiClient, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := apiClient.Post("/escalations/"+escalationID+"/answer", answerRequest{Answer: answer})
	if err != nil {
		return fmt.Errorf("failed to answer escalation: %w", err)
	}

	var item escalationItem
	if err := json.Unmarshal(resp.Data, &item); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("Answered %s\n", item.ID)
	return nil
}

// ClearCmd returns the clear command (teacher only)
func ClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all escalations",
		Long:  "Delete every escalation, answered or not (teacher only)",
		RunE:  runClear,
	}
}

func runClear(cmd *cobra.Command, args []string) error {
	apiClient, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := apiClient.Delete("/escalations")
	if err != nil {
		return fmt.Errorf("failed to clear escalations: %w", err)
	}

	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("Deleted %d escalations\n", out.Deleted)
	return nil
}
