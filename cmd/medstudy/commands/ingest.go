package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/cli"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Load studies from a pipe-delimited file",
	Long: `Load studies from a file with one study per line:

  ID|Name|YYYYMMDD|Modality|SexCode|SizeBytes

Empty lines and lines starting with # are skipped. Sex codes M and F map to
Masculine and Feminine; anything else is Other. A missing or non-numeric size
is synthesized from the modality. Duplicate ids are skipped.

Examples:
  medstudy ingest studies.txt
  medstudy ingest studies.txt --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		start := time.Now()
		sum, err := ingest.LoadFile(cmd.Context(), args[0], s, ingest.Options{})
		if err != nil {
			return err
		}
		if !isTable() {
			return output(cmd, map[string]any{
				"file":       args[0],
				"lines":      sum.Lines,
				"added":      sum.Added,
				"persisted":  sum.Persisted,
				"duplicates": sum.Duplicates,
				"malformed":  sum.Malformed(),
			})
		}

		w := cmd.OutOrStdout()
		cli.PrintSuccess(w, "Loaded %d studies from %s in %s", sum.Added, args[0], cli.FormatDuration(time.Since(start)))
		if sum.Persisted != sum.Added {
			cli.PrintWarning(w, "%d of %d studies were kept in memory only", sum.Added-sum.Persisted, sum.Added)
		}
		for _, id := range sum.Duplicates {
			cli.PrintInfo(w, "Skipped duplicate id %s", id)
		}
		for _, le := range sum.Errors {
			cli.PrintWarning(w, "%v", le)
		}
		fmt.Fprintf(w, "(%d lines, %d in memory, %s)\n", sum.Lines, s.Len(), cli.FormatMB(s.TotalSizeBytes()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
