package commands

import (
	"fmt"
	"os"

	"objvault/pkg/core"
	"objvault/pkg/ingester"

	"github.com/spf13/cobra"
)

var hashObjectWrite bool

var hashObjectCmd = &cobra.Command{
	Use:         "hash-object [-w] <file>",
	Short:       "Compute the blob id of a file, optionally storing it",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationNoRepo: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var blob *core.Blob
		if hashObjectWrite {
			a, err := requireApp(ctx)
			if err != nil {
				return err
			}
			blob, err = ingester.NewIngester(a.Store).IngestPath(ctx, args[0])
			if err != nil {
				return err
			}
		} else {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			if blob, err = ingester.HashOnly(f); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), blob.ID())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashObjectCmd)
	hashObjectCmd.Flags().BoolVarP(&hashObjectWrite, "write", "w", false, "write the blob into the object store")
}
