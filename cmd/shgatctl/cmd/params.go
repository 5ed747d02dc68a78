package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOutPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the engine's parameter blob to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := newClientFromFlags().exportParams(context.Background())
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportOutPath, blob, 0o644); err != nil {
			return fmt.Errorf("shgatctl: write %s: %w", exportOutPath, err)
		}
		fmt.Printf("wrote %d bytes to %s\n", len(blob), exportOutPath)
		return nil
	},
}

var importInPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a parameter blob file into the engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := os.ReadFile(importInPath)
		if err != nil {
			return fmt.Errorf("shgatctl: read %s: %w", importInPath, err)
		}
		if err := newClientFromFlags().importParams(context.Background(), blob); err != nil {
			return err
		}
		fmt.Printf("imported %d bytes from %s\n", len(blob), importInPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutPath, "out", "params.shgat", "output file path")
	importCmd.Flags().StringVar(&importInPath, "in", "params.shgat", "input file path")
}
