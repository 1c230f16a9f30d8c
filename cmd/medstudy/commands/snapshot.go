package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/cli"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/snapshot"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/storage"
)

var snapshotTarget string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export or import msgpack snapshots of the working set",
	Long: `Snapshots copy the working set to a local directory or an S3 bucket.
The target is --target, else the context's export setting, else
~/.medstudy/snapshots.

Examples:
  medstudy --load studies.txt snapshot export
  medstudy snapshot export --target s3://imaging-backups/ward
  medstudy snapshot list
  medstudy snapshot import`,
}

func openTarget(cmd *cobra.Command, s *session) (storage.FileStore, error) {
	url := snapshotTarget
	if url == "" {
		url = s.settings.Export
	}
	return storage.Open(cmd.Context(), url, storage.S3Options{
		Region:   s.settings.S3Region,
		Endpoint: s.settings.S3Endpoint,
	})
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the working set to a new snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		fs, err := openTarget(cmd, s)
		if err != nil {
			return err
		}
		info, err := snapshot.Export(cmd.Context(), fs, s, snapshot.Options{})
		if err != nil {
			return err
		}
		if !isTable() {
			return output(cmd, info)
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Exported %d studies to %s", info.Records, info.Path)
		return nil
	},
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Add the studies of a snapshot (default: the latest) to the registry",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := acquire(cmd)
		if err != nil {
			return err
		}
		defer done()

		fs, err := openTarget(cmd, s)
		if err != nil {
			return err
		}
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		sum, err := snapshot.Import(cmd.Context(), fs, path, s, snapshot.Options{})
		if err != nil {
			return err
		}
		if !isTable() {
			return output(cmd, sum)
		}
		w := cmd.OutOrStdout()
		cli.PrintSuccess(w, "Imported %d of %d studies from %s", sum.Added, sum.Records, sum.Path)
		if n := len(sum.Duplicates); n > 0 {
			cli.PrintInfo(w, "Skipped %d duplicates", n)
		}
		if n := len(sum.Invalid); n > 0 {
			cli.PrintWarning(w, "Skipped %d invalid records: %v", n, sum.Invalid)
		}
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots at the target, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := resolveSettings(cmd)
		if err != nil {
			return err
		}
		fs, err := openTarget(cmd, &session{settings: st})
		if err != nil {
			return err
		}
		paths, err := snapshot.List(cmd.Context(), fs)
		if err != nil {
			return err
		}
		if !isTable() {
			if paths == nil {
				paths = []string{}
			}
			return output(cmd, paths)
		}
		if len(paths) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
			return nil
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapshotTarget, "target", "", "snapshot target URL (file:///dir or s3://bucket/prefix)")

	snapshotCmd.AddCommand(snapshotExportCmd)
	snapshotCmd.AddCommand(snapshotImportCmd)
	snapshotCmd.AddCommand(snapshotListCmd)

	rootCmd.AddCommand(snapshotCmd)
}
