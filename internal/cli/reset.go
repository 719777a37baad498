package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pdfrag/config"
	"pdfrag/internal/adapter/store"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every stored document",
	Long: `Delete all stored chunks. Needed after changing the embedding model,
dimension or chunking settings, since old vectors cannot be compared with new
ones.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm deletion")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return fmt.Errorf("refusing to delete stored documents without --yes")
	}

	path := config.StorePath(rootDir, cfg.Store.Backend)
	switch cfg.Store.Backend {
	case "memory":
		fmt.Println("Nothing to reset for the in-memory store.")
		return nil
	case "badger":
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	default:
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Println("No record store found.")
			return nil
		}
		st, err := store.NewBoltRecordStore(path, cfg.Store.Dimension)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Reset(); err != nil {
			return fmt.Errorf("failed to reset record store: %w", err)
		}
	}

	fmt.Printf("Cleared %s\n", path)
	return nil
}
