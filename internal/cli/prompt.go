package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"pdfrag/internal/adapter/llm"
	"pdfrag/internal/app"
)

var (
	promptDoc   string
	promptQuery string
	promptTopK  int
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the grounded-answer prompt for a query",
	Long: `Retrieve chunks for a query and print the system and user prompts that
"pdfrag answer" would send, for use with another model by hand. Works with
llm.provider set to none.

Examples:
  pdfrag prompt -D 3f2a... -q "What is the notice period?" | pbcopy`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptDoc, "doc", "D", "", "document id (required)")
	promptCmd.Flags().StringVarP(&promptQuery, "query", "q", "", "question (required)")
	promptCmd.Flags().IntVarP(&promptTopK, "top-k", "k", 0, "number of chunks (default from config)")
	promptCmd.MarkFlagRequired("doc")
	promptCmd.MarkFlagRequired("query")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	st, emb, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := app.NewRetriever(cfg, st, emb, logger).Retrieve(cmd.Context(), promptDoc, promptQuery, promptTopK)
	if err != nil {
		return err
	}

	fmt.Println("### System")
	fmt.Println(llm.AnswerSystemPrompt)
	fmt.Println()
	fmt.Println("### User")
	fmt.Println(llm.BuildAnswerPrompt(promptQuery, results))
	return nil
}
