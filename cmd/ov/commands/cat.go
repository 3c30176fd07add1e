package commands

import (
	"fmt"

	"objvault/pkg/exporter"

	"github.com/spf13/cobra"
)

var catFormat string

var catCmd = &cobra.Command{
	Use:   "cat <id>",
	Short: "Show an object by id",
	Long: `Print an object from the store. Blobs are written as-is (redirect to save them),
trees and commits are pretty-printed. Use --format json|cbor for structured output
or --format raw for the stored bytes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := exporter.ParseFormat(catFormat)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		id, err := resolveRev(ctx, OV, args[0])
		if err != nil {
			return err
		}

		if err := OV.Exporter.PrintObject(ctx, id, cmd.OutOrStdout(), format); err != nil {
			return fmt.Errorf("cat failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
	catCmd.Flags().StringVar(&catFormat, "format", string(exporter.FormatText), "output format: text, json, cbor, raw")
}
