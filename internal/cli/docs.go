package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List ingested document ids",
	RunE:  runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)
}

// recordCounter is implemented by stores that can count a document's
// records without decoding them.
type recordCounter interface {
	Count(table, documentID string) (int, error)
}

func runDocs(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ids, err := st.Documents(cmd.Context(), cfg.Store.Table)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No documents ingested yet.")
		return nil
	}

	counter, canCount := st.(recordCounter)
	for _, id := range ids {
		if !canCount {
			fmt.Println(id)
			continue
		}
		n, err := counter.Count(cfg.Store.Table, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s  (%d chunks)\n", id, n)
	}
	return nil
}
