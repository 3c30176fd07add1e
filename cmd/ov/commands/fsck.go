package commands

import (
	"errors"
	"fmt"
	"sort"

	"objvault/pkg/core"
	"objvault/pkg/storage/verify"

	"github.com/spf13/cobra"
)

var fsckWorkers int

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Verify the integrity of every stored object",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		store, ok := OV.Verifiable()
		if !ok {
			return errors.New("fsck: the configured storage backend cannot be enumerated")
		}

		v := verify.NewVerifier(store, verify.WithWorkers(fsckWorkers), verify.WithLogger(OV.Logger))
		report, err := v.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("fsck aborted: %w", err)
		}

		kinds := make([]core.ObjectType, 0, len(report.Counts))
		for k := range report.Counts {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

		fmt.Fprintf(out, "checked %d objects\n", report.Checked)
		for _, k := range kinds {
			fmt.Fprintf(out, "  %-6s %d\n", k, report.Counts[k])
		}
		for _, h := range report.Bad {
			fmt.Fprintf(out, "corrupt object %s\n", h)
		}
		if !report.OK() {
			return fmt.Errorf("fsck found %d corrupt objects: %w", len(report.Bad), report.Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fsckCmd)
	fsckCmd.Flags().IntVarP(&fsckWorkers, "workers", "j", 0, "number of concurrent checks (default: number of CPUs)")
}
