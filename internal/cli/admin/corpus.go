package admin

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/eduquery-ai/eduquery/internal/pagination"
	"github.com/eduquery-ai/eduquery/internal/repository"
	"github.com/eduquery-ai/eduquery/internal/service"
	"github.com/spf13/cobra"
)

func CorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Manage the reference question corpus",
		Long:  "Import and list the reference questions used for similarity scoring",
	}

	cmd.AddCommand(CorpusImportCmd())
	cmd.AddCommand(CorpusListCmd())

	return cmd
}

func CorpusImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import reference questions from a file",
		Long:  "Import reference questions, one per line. Embedding jobs are queued for the background worker",
		Args:  cobra.ExactArgs(1),
		RunE:  runCorpusImport,
	}

	return cmd
}

func runCorpusImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	corpusRepo := repository.NewCorpusRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	corpusSvc := service.NewCorpusService(txRunner, corpusRepo)

	imported := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if _, err := corpusSvc.Add(ctx, text); err != nil {
			return fmt.Errorf("failed to import question %q: %w", text, err)
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	fmt.Printf("Imported %d questions (embedding jobs queued)\n", imported)
	return nil
}

func CorpusListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reference questions",
		Long:  "List the reference question corpus with embedding status",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runCorpusList(outputFormat, limit, cursor)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runCorpusList(outputFormat string, limit int, cursorStr string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	corpusRepo := repository.NewCorpusRepository(pool)

	cursor, _ := pagination.DecodeCursor(cursorStr)
	result, err := corpusRepo.ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to list corpus: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(result.Items))
		for i, entry := range result.Items {
			data[i] = map[string]interface{}{
				"id":         entry.ID,
				"text":       entry.Text,
				"embedded":   entry.Embedded,
				"created_at": entry.CreatedAt,
			}
		}
		output := map[string]interface{}{
			"items":    data,
			"cursor":   result.NextCursor,
			"has_more": result.HasMore,
		}
		jsonBytes, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(result.Items) == 0 {
			fmt.Println("No reference questions found")
			return nil
		}
		fmt.Println("Reference questions:")
		for _, entry := range result.Items {
			status := "pending"
			if entry.Embedded {
				status = "embedded"
			}
			fmt.Printf("  %s [%s] %s\n", entry.ID, status, entry.Text)
		}
		if result.HasMore && result.NextCursor != "" {
			fmt.Printf("\nMore results available. Use --cursor %s\n", result.NextCursor)
		}
	}

	return nil
}
