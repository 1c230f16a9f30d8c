package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/cli"
)

var (
	cfgAddDB         string
	cfgAddExport     string
	cfgAddRehydrate  bool
	cfgAddS3Region   string
	cfgAddS3Endpoint string
)

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"ctx"},
	Short:   "Context configuration management",
	Long: `Manage named contexts in ~/.medstudy/config.yaml. A context selects the
durable tier URL, whether to rehydrate on start, and the snapshot target.

Examples:
  medstudy config add ward --db badger:///var/lib/medstudy --rehydrate
  medstudy config use ward
  medstudy config set export s3://imaging-backups/ward
  medstudy config show`,
}

var configAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create or replace a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		err = cfg.AddContext(args[0], &cli.Context{
			DB:         cfgAddDB,
			Rehydrate:  cfgAddRehydrate,
			Export:     cfgAddExport,
			S3Region:   cfgAddS3Region,
			S3Endpoint: cfgAddS3Endpoint,
		})
		if err != nil {
			return err
		}
		if !isTable() {
			return output(cmd, map[string]any{"name": args[0], "status": "created"})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Context %q created.\n", args[0])
		return nil
	},
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"remove"},
	Short:   "Remove a context",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		if !isTable() {
			return output(cmd, map[string]any{"name": args[0], "status": "removed"})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Context %q removed.\n", args[0])
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		if !isTable() {
			return output(cmd, map[string]any{"name": args[0], "status": "active"})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q.\n", args[0])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contexts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		if !isTable() {
			return output(cmd, map[string]any{"current": cfg.CurrentContext, "contexts": names})
		}
		w := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(w, "No contexts configured.")
			fmt.Fprintln(w, "Create one with: medstudy config add <name>")
			return nil
		}
		for _, name := range names {
			marker := "  "
			if name == cfg.CurrentContext {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s\n", marker, name)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a key on the current context (db, rehydrate, export, s3_region, s3_endpoint)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		name := contextName
		if name == "" {
			name = cfg.CurrentContext
		}
		if name == "" {
			return fmt.Errorf("no current context set")
		}
		c, err := cfg.GetContext(name)
		if err != nil {
			return err
		}
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		if !isTable() {
			return output(cmd, map[string]any{"context": name, "key": args[0], "value": args[1], "status": "set"})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the settings this invocation resolves to",
	Long: `Show the effective settings after applying flags, MEDSTUDY_DB and the
selected context.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := resolveSettings(cmd)
		if err != nil {
			return err
		}
		if !isTable() {
			return output(cmd, st)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "context:\t%s\n", valueOrEmpty(st.Context))
		fmt.Fprintf(tw, "db:\t%s\n", st.DB)
		fmt.Fprintf(tw, "rehydrate:\t%t\n", st.Rehydrate)
		fmt.Fprintf(tw, "export:\t%s\n", st.Export)
		fmt.Fprintf(tw, "s3_region:\t%s\n", valueOrEmpty(st.S3Region))
		fmt.Fprintf(tw, "s3_endpoint:\t%s\n", valueOrEmpty(st.S3Endpoint))
		return tw.Flush()
	},
}

func init() {
	configAddCmd.Flags().StringVar(&cfgAddDB, "db", "", "durable tier URL")
	configAddCmd.Flags().StringVar(&cfgAddExport, "export", "", "snapshot target URL")
	configAddCmd.Flags().BoolVar(&cfgAddRehydrate, "rehydrate", false, "rehydrate on start")
	configAddCmd.Flags().StringVar(&cfgAddS3Region, "s3-region", "", "S3 region")
	configAddCmd.Flags().StringVar(&cfgAddS3Endpoint, "s3-endpoint", "", "S3-compatible endpoint")

	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configDeleteCmd)
	configCmd.AddCommand(configUseCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(configCmd)
}

func valueOrEmpty(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
