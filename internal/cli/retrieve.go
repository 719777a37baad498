package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"pdfrag/internal/app"
	"pdfrag/internal/domain"
)

var (
	retrieveDoc   string
	retrieveQuery string
	retrieveTopK  int
	retrieveJSON  bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Show the chunks most similar to a query",
	Long: `Rank the chunks of one document against a query by cosine similarity.

Examples:
  pdfrag retrieve -D 3f2a... -q "termination clause"
  pdfrag retrieve -D 3f2a... -q "termination clause" -k 5 --json`,
	RunE: runRetrieve,
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
	retrieveCmd.Flags().StringVarP(&retrieveDoc, "doc", "D", "", "document id (required)")
	retrieveCmd.Flags().StringVarP(&retrieveQuery, "query", "q", "", "query (required)")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of results (default from config)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output as JSON")
	retrieveCmd.MarkFlagRequired("doc")
	retrieveCmd.MarkFlagRequired("query")
}

type retrieveOutput struct {
	DocumentID     string                   `json:"document_id"`
	RelevantChunks []domain.RetrievalResult `json:"relevant_chunks"`
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	st, emb, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	retriever := app.NewRetriever(cfg, st, emb, logger)
	results, err := retriever.Retrieve(cmd.Context(), retrieveDoc, retrieveQuery, retrieveTopK)
	if err != nil {
		return err
	}

	if retrieveJSON {
		output, _ := json.MarshalIndent(retrieveOutput{DocumentID: retrieveDoc, RelevantChunks: results}, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d chunks for: %s\n\n", len(results), retrieveQuery)
	printResults(results)
	return nil
}

func printResults(results []domain.RetrievalResult) {
	for i, r := range results {
		fmt.Printf("--- [%d] %s (similarity: %.3f) ---\n", i+1, r.NodeID, r.Similarity)
		text := r.Text
		if len([]rune(text)) > 500 {
			text = string([]rune(text)[:500]) + "..."
		}
		fmt.Println(strings.TrimSpace(text))
		fmt.Println()
	}
}
