package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/durable"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
)

var durableCmd = &cobra.Command{
	Use:   "durable",
	Short: "Query the durable tier directly",
}

var durableFindCmd = &cobra.Command{
	Use:   "find <id|name|modality|sex> <query>",
	Short: "Search durable records",
	Long: `Search the durable tier without touching the working set. "id" is a
key lookup; the other fields match case-insensitive substrings.

Examples:
  medstudy durable find id P001
  medstudy durable find name perez`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		records, err := s.SearchDurable(cmd.Context(), args[0], args[1])
		if errors.Is(err, durable.ErrDegraded) {
			return fmt.Errorf("durable tier unavailable (%s): %w", s.Durable().URL(), err)
		}
		if err != nil {
			return err
		}
		if !isTable() {
			if records == nil {
				records = []study.Record{}
			}
			return output(cmd, records)
		}
		return output(cmd, recordView{
			header:  fmt.Sprintf("durable matches for %s %q: %d", args[0], args[1], len(records)),
			records: records,
		})
	},
}

var durableCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count durable records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		n, err := s.DurableCount(cmd.Context())
		if err != nil {
			return err
		}
		if !isTable() {
			return output(cmd, map[string]any{"durable": n, "state": s.DurableState().String()})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d durable records (%s)\n", n, s.DurableState())
		return nil
	},
}

func init() {
	durableCmd.AddCommand(durableFindCmd)
	durableCmd.AddCommand(durableCountCmd)

	rootCmd.AddCommand(durableCmd)
}
