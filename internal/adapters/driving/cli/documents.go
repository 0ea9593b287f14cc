package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qwant1k/rag/internal/core/domain"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List indexed documents",
	Long:  `Lists every document in the index with its chunk count and pages.`,
	RunE:  runDocuments,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(documentsCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	docs, err := app.ingestor.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if documentsJSON {
		return outputDocumentsJSON(cmd, docs)
	}
	return outputDocumentsTable(cmd, docs)
}

func outputDocumentsJSON(cmd *cobra.Command, docs []domain.DocumentInfo) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputDocumentsTable(cmd *cobra.Command, docs []domain.DocumentInfo) error {
	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].Filename)
		cmd.Printf("      %d chunks across %d pages\n", docs[i].ChunkCount, len(docs[i].Pages))
	}
	return nil
}
