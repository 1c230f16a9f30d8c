package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/cli"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
)

var (
	listJQ    string
	listCards bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List studies in insertion order",
	Long: `List every study in the working set in insertion order.

--jq runs a jq expression over the JSON array of studies and prints each
result as one JSON value per line.

Examples:
  medstudy --rehydrate list
  medstudy --rehydrate list --cards
  medstudy --rehydrate list --jq '.[] | select(.size_bytes > 100000000) | .id'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		records := s.Records()
		if listJQ != "" {
			return runJQ(cmd.OutOrStdout(), listJQ, records)
		}
		return printRecords(cmd, s, records, listCards)
	},
}

// recordView is the table rendering of a listing.
type recordView struct {
	header  string
	records []study.Record
	cards   bool
}

func (v recordView) WriteTable(w io.Writer) error {
	if v.header != "" {
		fmt.Fprintln(w, v.header)
	}
	if len(v.records) == 0 {
		fmt.Fprintln(w, "No studies found.")
		return nil
	}
	if v.cards {
		styles := cli.NewStyles(cli.DefaultTheme)
		for _, r := range v.records {
			fmt.Fprintln(w, styles.Card(r))
		}
		return nil
	}
	return cli.WriteRecordTable(w, v.records)
}

func printRecords(cmd *cobra.Command, s *session, records []study.Record, cards bool) error {
	if !isTable() {
		if records == nil {
			records = []study.Record{}
		}
		return output(cmd, records)
	}
	header := cli.NewStyles(cli.DefaultTheme).Header(s.Len(), s.TotalSizeBytes(), s.DurableState().String())
	return output(cmd, recordView{header: header, records: records, cards: cards})
}

func runJQ(w io.Writer, expr string, records []study.Record) error {
	query, err := gojq.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	// gojq works on plain JSON values.
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return err
	}
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return fmt.Errorf("jq error: %w", err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal jq result: %w", err)
		}
		fmt.Fprintln(w, string(out))
	}
}

func init() {
	listCmd.Flags().StringVar(&listJQ, "jq", "", "jq expression applied to the JSON array of studies")
	listCmd.Flags().BoolVar(&listCards, "cards", false, "render each study as a card")

	rootCmd.AddCommand(listCmd)
}
