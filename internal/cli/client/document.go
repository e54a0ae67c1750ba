package client

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// DocsCmd returns the docs command group (teacher only)
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage teaching documents",
		Long:  "Upload and manage the documents the answer synthesizer is grounded in (teacher only)",
	}

	cmd.AddCommand(DocsUploadCmd())
	cmd.AddCommand(DocsListCmd())
	cmd.AddCommand(DocsDeleteCmd())

	return cmd
}

// DocsUploadCmd returns the docs upload command
func DocsUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <text-file>",
		Short: "Upload a document's extracted text",
		Long:  "Register a document, upload its extracted text, and queue it for chunking and embedding",
		Args:  cobra.ExactArgs(1),
		RunE:  runDocsUpload,
	}

	cmd.Flags().String("filename", "", "Original filename (defaults to the uploaded file's name)")

	return cmd
}

type createDocumentRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
}

type documentItem struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	CreatedAt string `json:"created_at"`
}

type createDocumentResponse struct {
	Document  documentItem `json:"document"`
	UploadURL string       `json:"upload_url"`
}

type ingestResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func runDocsUpload(cmd *cobra.Command, args []string) error {
	textPath := args[0]

	filename, _ := cmd.Flags().GetString("filename")
	if filename == "" {
		filename = filepath.Base(textPath)
	}

	apiClient, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := apiClient.Post("/documents", createDocumentRequest{
		Filename: filename,
		MimeType: "text/plain",
	})
	if err != nil {
		return fmt.Errorf("failed to register document: %w", err)
	}

	var created createDocumentResponse
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if err := apiClient.UploadFile(created.UploadURL, textPath, "text/plain; charset=utf-8"); err != nil {
		return fmt.Errorf("failed to upload text: %w", err)
	}

	resp, err = apiClient.Post("/documents/"+created.Document.ID+"/ingest", nil)
	if err != nil {
		return fmt.Errorf("failed to queue ingestion: %w", err)
	}

	var ingest ingestResponse
	if err := json.Unmarshal(resp.Data, &ingest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("Uploaded %s (document %s, embedding job %s)\n", filename, created.Document.ID, ingest.JobID)
	return nil
}

// DocsListCmd returns the docs list command
func DocsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded documents",
		RunE:  runDocsList,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runDocsList(cmd *cobra.Command, args []string) error {
	outputFormat, _ := cmd.Flags().GetString("output")

	apiClient, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := apiClient.Get("/documents")
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var out struct {
		Items []documentItem `json:"items"`
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(out.Items) == 0 {
		fmt.Println("No documents found")
		return nil
	}

	for _, item := range out.Items {
		fmt.Printf("%s  %s (%s)\n", item.ID, item.Filename, item.CreatedAt)
	}

	return nil
}

// DocsDeleteCmd returns the docs delete command
func DocsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [document-id]",
		Short: "Delete a document, or all documents with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDocsDelete,
	}

	cmd.Flags().Bool("all", false, "Delete every document")

	return cmd
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")

	apiClient, err := NewAPIClient()
	if err != nil {
		return err
	}

	if all {
		resp, err := apiClient.Delete("/documents")
		if err != nil {
			return fmt.Errorf("failed to delete documents: %w", err)
		}
		var out struct {
			Deleted int `json:"deleted"`
		}
		if err := json.Unmarshal(resp.Data, &out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Printf("Deleted %d documents\n", out.Deleted)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("document id required (or use --all)")
	}

	if _, err := apiClient.Delete("/documents/" + args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
