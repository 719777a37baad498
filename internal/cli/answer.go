package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"pdfrag/internal/app"
	"pdfrag/internal/domain"
)

var (
	answerDoc   string
	answerQuery string
	answerTopK  int
	answerJSON  bool
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Answer a question about a document",
	Long: `Retrieve the most similar chunks, ask the model to answer from them, and
fall back to a general answer when the chunks are not relevant.

Examples:
  pdfrag answer -D 3f2a... -q "Who signed the agreement?"`,
	RunE: runAnswer,
}

func init() {
	rootCmd.AddCommand(answerCmd)
	answerCmd.Flags().StringVarP(&answerDoc, "doc", "D", "", "document id (required)")
	answerCmd.Flags().StringVarP(&answerQuery, "query", "q", "", "question (required)")
	answerCmd.Flags().IntVarP(&answerTopK, "top-k", "k", 0, "number of chunks given to the model (default from config)")
	answerCmd.Flags().BoolVar(&answerJSON, "json", false, "output as JSON")
	answerCmd.MarkFlagRequired("doc")
	answerCmd.MarkFlagRequired("query")
}

type answerOutput struct {
	DocumentID string `json:"document_id"`
	Query      string `json:"query"`
	domain.Answer
}

func runAnswer(cmd *cobra.Command, args []string) error {
	st, emb, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	answerUC, err := app.NewAnswerUseCase(cfg, app.NewRetriever(cfg, st, emb, logger), logger)
	if err != nil {
		return err
	}

	ans, err := answerUC.Answer(cmd.Context(), answerDoc, answerQuery, answerTopK)
	if err != nil {
		return err
	}

	if answerJSON {
		output, _ := json.MarshalIndent(answerOutput{DocumentID: answerDoc, Query: answerQuery, Answer: ans}, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printAnswer(ans)
	return nil
}

func printAnswer(ans domain.Answer) {
	fmt.Println(ans.Text)
	if len(ans.Sources) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for i, s := range ans.Sources {
		fmt.Printf("  [%d] %s (similarity: %.3f)\n", i+1, s.NodeID, s.Similarity)
	}
}
