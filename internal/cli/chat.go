package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"pdfrag/internal/adapter/cache"
	"pdfrag/internal/app"
	"pdfrag/internal/port"
	"pdfrag/internal/usecase"
)

var (
	chatDoc  string
	chatTopK int
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask several questions about a document",
	Long: `Start an interactive session against one document. Each line is answered
like "pdfrag answer"; with llm.provider set to none the retrieved chunks are
shown instead. Repeated questions are served from the query cache.

Type "exit" or press Ctrl-D to leave.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatDoc, "doc", "D", "", "document id (required)")
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "number of chunks per question (default from config)")
	chatCmd.MarkFlagRequired("doc")
}

func runChat(cmd *cobra.Command, args []string) error {
	st, emb, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var retriever port.Retriever = app.NewRetriever(cfg, st, emb, logger)
	if qc := app.NewQueryCache(cfg); qc != nil {
		retriever = cache.NewCachedRetriever(retriever, qc)
	}

	var answerUC *usecase.AnswerUseCase
	if cfg.LLM.Provider != "none" {
		answerUC, err = app.NewAnswerUseCase(cfg, retriever, logger)
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("Chatting with document %s. Type \"exit\" to quit.\n", chatDoc)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if answerUC == nil {
			results, err := retriever.Retrieve(ctx, chatDoc, question, chatTopK)
			if err != nil {
				fmt.Println("Error:", describeError(err))
				continue
			}
			printResults(results)
			continue
		}

		ans, err := answerUC.Answer(ctx, chatDoc, question, chatTopK)
		if err != nil {
			fmt.Println("Error:", describeError(err))
			continue
		}
		printAnswer(ans)
		fmt.Println()

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
