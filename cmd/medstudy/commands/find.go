package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
)

var findCards bool

var findCmd = &cobra.Command{
	Use:   "find <id|exact|name|modality|sex> <query>",
	Short: "Search the in-memory working set",
	Long: `Search the working set.

  id        record with exactly this id
  exact     same as id, reported as a single record
  name      records whose patient name is exactly the query
  modality  records whose modality is exactly the query
  sex       records whose sex is exactly the query (Masculine, Feminine, Other)

Matching is case-sensitive and whole-value. For partial, case-insensitive
matches use "medstudy durable find".

Examples:
  medstudy --rehydrate find id P001
  medstudy --rehydrate find modality CT --cards`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"id", "exact", "name", "modality", "sex"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, query := args[0], args[1]
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		var records []study.Record
		switch kind {
		case "id":
			if r, ok := s.FindByID(query); ok {
				records = append(records, r)
			}
		case "exact":
			r := s.FindExact(query)
			if r == nil {
				if isTable() {
					fmt.Fprintf(cmd.OutOrStdout(), "No study with id %q.\n", query)
					return nil
				}
				return output(cmd, nil)
			}
			if !isTable() {
				return output(cmd, r)
			}
			records = append(records, *r)
		default:
			f, err := study.ParseField(kind)
			if err != nil {
				return err
			}
			records = s.FindByField(f, query)
		}
		return printRecords(cmd, s, records, findCards)
	},
}

func init() {
	findCmd.Flags().BoolVar(&findCards, "cards", false, "render each study as a card")

	rootCmd.AddCommand(findCmd)
}
