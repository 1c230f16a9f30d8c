package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/cli"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete studies from memory and the durable tier",
	Long: `Delete studies. A deletion removes the study from the working set and,
when it was there, from the durable tier.

Examples:
  medstudy --rehydrate delete id P001 --yes
  medstudy --rehydrate delete pos 3
  medstudy delete all --yes`,
}

var deleteIDCmd = &cobra.Command{
	Use:   "id <id>",
	Short: "Delete the study with the given id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		rec, ok := s.FindByID(id)
		if !ok {
			return reportDelete(cmd, id, false)
		}
		if !deleteYes {
			fmt.Fprintln(cmd.OutOrStdout(), cli.NewStyles(cli.DefaultTheme).Card(rec))
			if !confirm(cmd, "Delete this study?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
		}
		deleted, err := s.DeleteByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		return reportDelete(cmd, id, deleted)
	},
}

var deletePosCmd = &cobra.Command{
	Use:   "pos <n>",
	Short: "Delete the n-th study in insertion order (1-based, as shown by list)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid position %q: %w", args[0], err)
		}
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		rec, ok, err := s.DeleteByPosition(cmd.Context(), n-1)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("position %d out of range (1..%d)", n, s.Len())
		}
		return reportDelete(cmd, rec.ID, true)
	},
}

var deleteAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Delete every study from memory and the durable tier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		if !deleteYes && !confirm(cmd, "Delete ALL studies from memory and the durable tier?") {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
		before := s.Len()
		if err := s.ClearAll(cmd.Context()); err != nil {
			return err
		}
		if !isTable() {
			return output(cmd, map[string]any{"status": "cleared", "memory_removed": before})
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Cleared %d studies from memory and the durable tier", before)
		return nil
	},
}

func reportDelete(cmd *cobra.Command, id string, deleted bool) error {
	if !isTable() {
		status := "not_found"
		if deleted {
			status = "deleted"
		}
		return output(cmd, map[string]any{"id": id, "status": status})
	}
	if !deleted {
		fmt.Fprintf(cmd.OutOrStdout(), "No study with id %q.\n", id)
		return nil
	}
	cli.PrintSuccess(cmd.OutOrStdout(), "Deleted %s", id)
	return nil
}

func init() {
	deleteCmd.PersistentFlags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")

	deleteCmd.AddCommand(deleteIDCmd)
	deleteCmd.AddCommand(deletePosCmd)
	deleteCmd.AddCommand(deleteAllCmd)

	rootCmd.AddCommand(deleteCmd)
}
