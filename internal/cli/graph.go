package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"pdfrag/internal/domain"
	"pdfrag/internal/usecase"
)

var (
	graphDoc       string
	graphThreshold float64
	graphJSON      bool
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Rebuild the similarity graph of a document",
	Long: `Rebuild the chunk similarity graph of the latest ingestion of a document
from the stored records. Two chunks are linked when their cosine similarity is
above the threshold.

Examples:
  pdfrag graph -D 3f2a...
  pdfrag graph -D 3f2a... --threshold 0.8 --json > graph.json`,
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringVarP(&graphDoc, "doc", "D", "", "document id (required)")
	graphCmd.Flags().Float64Var(&graphThreshold, "threshold", 0, "edge threshold (default from config)")
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "output as JSON")
	graphCmd.MarkFlagRequired("doc")
}

func runGraph(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.Search(cmd.Context(), cfg.Store.Table, graphDoc, nil, 0)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageRead, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, graphDoc)
	}

	threshold := cfg.Graph.EdgeThreshold
	if cmd.Flags().Changed("threshold") {
		threshold = graphThreshold
	}
	graph := usecase.GraphFromRecords(graphDoc, records, threshold)

	if graphJSON {
		output, _ := json.MarshalIndent(graph, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Document %s: %d nodes, %d edges (threshold %.2f)\n\n", graphDoc, len(graph.Nodes), len(graph.Edges), threshold)
	for _, e := range graph.Edges {
		fmt.Printf("  %d -- %d  (%.3f)\n", e.NodeA, e.NodeB, e.Weight)
	}
	return nil
}
