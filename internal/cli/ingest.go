package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/app"
	"pdfrag/internal/port"
	"pdfrag/internal/usecase"
)

var (
	ingestID       string
	ingestGraphOut string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|dir|glob|url>...",
	Short: "Ingest PDF documents",
	Long: `Extract, chunk and embed PDF documents and store them for retrieval.
Directories are searched recursively for *.pdf files; globs support ** patterns.
Each ingested PDF gets a new document id unless --id is given, in which case
the new chunks are appended under that id.

Examples:
  pdfrag ingest report.pdf
  pdfrag ingest ./papers
  pdfrag ingest "docs/**/*.pdf"
  pdfrag ingest https://example.com/paper.pdf --graph-out graph.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "ingest under an existing document id")
	ingestCmd.Flags().StringVar(&ingestGraphOut, "graph-out", "", "write the similarity graph as JSON to this file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	targets, err := resolveTargets(args)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no PDF files found in %s", strings.Join(args, ", "))
	}
	if len(targets) > 1 && (ingestID != "" || ingestGraphOut != "") {
		return fmt.Errorf("--id and --graph-out need exactly one PDF, got %d", len(targets))
	}

	st, emb, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ingestUC := app.NewIngestUseCase(cfg, st, emb, logger)

	var failures []string
	var lastErr error
	for _, target := range targets {
		fmt.Printf("Ingesting %s...\n", target)

		res, err := ingestUC.IngestSource(cmd.Context(), target, usecase.IngestOptions{
			DocumentID: ingestID,
			Progress:   newProgress("Embedding"),
		})
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", target, describeError(err)))
			lastErr = err
			continue
		}

		fmt.Printf("  Document ID: %s\n", res.DocumentID)
		fmt.Printf("  Chunks:      %d\n", res.Chunks)
		fmt.Printf("  Edges:       %d\n", res.Edges)

		if ingestGraphOut != "" {
			if err := writeGraph(ingestGraphOut, res); err != nil {
				return err
			}
			fmt.Printf("  Graph:       %s\n", ingestGraphOut)
		}
	}

	if len(failures) > 0 {
		fmt.Printf("\nFailed:\n")
		for _, f := range failures {
			fmt.Printf("  - %s\n", f)
		}
		return lastErr
	}
	return nil
}

// resolveTargets expands paths, directories and globs into PDF files. URLs
// are passed through.
func resolveTargets(args []string) ([]string, error) {
	var finder port.FileFinder = fs.NewFinder(nil, nil)

	var targets []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			targets = append(targets, arg)
			continue
		}
		files, err := finder.Find(arg)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			targets = append(targets, f.Path)
		}
	}
	return targets, nil
}

func writeGraph(path string, res *usecase.IngestResult) error {
	data, err := json.MarshalIndent(res.Graph, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	return nil
}

// newProgress returns a progress callback that lazily creates the bar once
// the total is known.
func newProgress(label string) func(done, total int) {
	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	return func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
