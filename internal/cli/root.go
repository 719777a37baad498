package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"pdfrag/config"
	"pdfrag/internal/app"
	"pdfrag/internal/domain"
	"pdfrag/internal/logging"
	"pdfrag/internal/port"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	verbose bool
	logger  arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "pdfrag",
	Short: "Ask questions about PDF documents",
	Long: `pdfrag ingests PDF documents into a local vector store and answers questions
about them from the most similar chunks, falling back to a general-purpose
model when the document has nothing relevant.

Example usage:
  pdfrag ingest report.pdf                       # Ingest a PDF, prints its document id
  pdfrag retrieve -D <id> -q "revenue in 2023"   # Show the most similar chunks
  pdfrag answer -D <id> -q "what was revenue?"   # Answer from the document`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		// Keys may live in a .env file; variables already set win.
		_ = godotenv.Load(filepath.Join(rootDir, ".env"))

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger = logging.New(cfg.Logging)

		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describeError(err))
		stop()
		os.Exit(domain.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pdfrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "data directory (default is current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// describeError shows users the category message for known failures and the
// plain error otherwise (bad flags, missing files, config problems).
func describeError(err error) string {
	if !domain.Categorized(err) {
		return err.Error()
	}
	msg := domain.UserMessage(err)
	if verbose {
		msg += " (" + err.Error() + ")"
	}
	return msg
}

// openStore opens the configured store and embedder. The caller closes the
// store.
func openStore() (port.RecordStore, port.Embedder, error) {
	emb, err := app.NewEmbedder(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	st, err := app.OpenStore(cfg, rootDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open record store: %w", err)
	}
	return st, emb, nil
}
