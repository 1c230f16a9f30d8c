package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/cli"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/registry"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Compare memory and durable record counts",
	Long: `Report whether the working set and the durable tier hold the same
number of records. The check only reads; it never reconciles the tiers.

  in-sync         counts match
  durable-ahead   the durable tier holds records not in memory
  durable-behind  memory holds records the durable tier lacks`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		rep, err := s.ConsistencyCheck(cmd.Context())
		if err != nil {
			return err
		}
		if !isTable() {
			return output(cmd, rep)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "memory:  %d\ndurable: %d\nstatus:  %s\n", rep.Memory, rep.Durable, rep.StatusStr)
		switch {
		case !rep.Connected:
			cli.PrintWarning(w, "durable tier unavailable; records are not persisted")
		case rep.Status == registry.DurableAhead:
			cli.PrintInfo(w, "durable tier has records not loaded in memory (try --rehydrate)")
		case rep.Status == registry.DurableBehind:
			cli.PrintWarning(w, "some in-memory records were not persisted")
		}
		return nil
	},
}

// metricRow is one sample from the registry's collectors.
type metricRow struct {
	Name   string            `json:"name" yaml:"name"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Value  float64           `json:"value" yaml:"value"`
}

type statsView struct {
	Context      string      `json:"context" yaml:"context"`
	DB           string      `json:"db" yaml:"db"`
	DurableState string      `json:"durable_state" yaml:"durable_state"`
	Memory       int         `json:"memory" yaml:"memory"`
	MemoryBytes  int64       `json:"memory_bytes" yaml:"memory_bytes"`
	Metrics      []metricRow `json:"metrics" yaml:"metrics"`
}

func (v statsView) WriteTable(w io.Writer) error {
	fmt.Fprintln(w, cli.NewStyles(cli.DefaultTheme).Header(v.Memory, v.MemoryBytes, v.DurableState))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tLABELS\tVALUE")
	for _, m := range v.Metrics {
		var labels []string
		for k, val := range m.Labels {
			labels = append(labels, k+"="+val)
		}
		slices.Sort(labels)
		fmt.Fprintf(tw, "%s\t%s\t%g\n", m.Name, strings.Join(labels, ","), m.Value)
	}
	return tw.Flush()
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show registry counters and gauges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		// Refresh the durable gauge.
		if _, err := s.ConsistencyCheck(cmd.Context()); err != nil {
			return err
		}
		families, err := s.prom.Gather()
		if err != nil {
			return err
		}
		view := statsView{
			Context:      s.settings.Context,
			DB:           s.settings.DB,
			DurableState: s.DurableState().String(),
			Memory:       s.Len(),
			MemoryBytes:  s.TotalSizeBytes(),
			Metrics:      metricRows(families),
		}
		return output(cmd, view)
	},
}

// metricRows flattens gathered families; Gather already sorts them by name.
func metricRows(families []*dto.MetricFamily) []metricRow {
	var rows []metricRow
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			row := metricRow{Name: mf.GetName()}
			for _, lp := range m.GetLabel() {
				if row.Labels == nil {
					row.Labels = make(map[string]string)
				}
				row.Labels[lp.GetName()] = lp.GetValue()
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				row.Value = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				row.Value = m.GetGauge().GetValue()
			default:
				continue
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statsCmd)
}
