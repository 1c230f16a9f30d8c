package commands

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/cli"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/durable"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/ingest"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/kv"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/registry"
)

var (
	verbose      bool
	formatOutput string
	configPath   string
	contextName  string
	dbURL        string
	rehydrate    bool
	loadFile     string
)

var rootCmd = &cobra.Command{
	Use:   "medstudy",
	Short: "Medical study registry with a durable key-value tier",
	Long: `medstudy keeps patient imaging studies in an in-memory index and
mirrors every change to a durable key-value store.

Each invocation starts with an empty working set unless --rehydrate is given
(or the context sets rehydrate: true). Use "medstudy shell" to keep one
working set alive across many commands.

Commands:
  ingest    Load studies from a pipe-delimited file
  list      List studies in insertion order
  find      Search the in-memory working set
  durable   Query the durable tier directly
  delete    Delete studies by id, by position, or all of them
  sync      Compare memory and durable record counts
  stats     Show registry counters and gauges
  snapshot  Export or import msgpack snapshots (local dir or S3)
  config    Context configuration management
  shell     Interactive session
  version   Version information

Examples:
  medstudy config add ward --db badger:///var/lib/medstudy && medstudy config use ward
  medstudy ingest studies.txt
  medstudy --rehydrate find name perez
  medstudy --load studies.txt list --jq '.[] | select(.modality == "CT") | .id'
  medstudy durable find modality mri`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		_, err := cli.ParseOutputFormat(formatOutput)
		return err
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&formatOutput, "format", "table", "output format: table, json, yaml")
	pf.StringVar(&configPath, "config", "", "config file (default ~/.medstudy/config.yaml, env MEDSTUDY_CONFIG)")
	pf.StringVar(&contextName, "context", "", "context to use instead of the current one")
	pf.StringVar(&dbURL, "db", "", "durable tier URL (env MEDSTUDY_DB; default "+durable.DefaultURL+")")
	pf.BoolVar(&rehydrate, "rehydrate", false, "load durable records into memory on start")
	pf.StringVar(&loadFile, "load", "", "ingest this file before running the command")
}

// settings is the resolved configuration for one invocation.
type settings struct {
	Context    string `json:"context" yaml:"context"`
	DB         string `json:"db" yaml:"db"`
	Rehydrate  bool   `json:"rehydrate" yaml:"rehydrate"`
	Export     string `json:"export" yaml:"export"`
	S3Region   string `json:"s3_region,omitempty" yaml:"s3_region,omitempty"`
	S3Endpoint string `json:"s3_endpoint,omitempty" yaml:"s3_endpoint,omitempty"`
}

func loadConfig() (*cli.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("MEDSTUDY_CONFIG")
	}
	return cli.LoadConfig(path)
}

// resolveSettings applies flag > environment > context > default.
func resolveSettings(cmd *cobra.Command) (settings, error) {
	cfg, err := loadConfig()
	if err != nil {
		return settings{}, err
	}
	c, err := cfg.ResolveContext(contextName)
	if err != nil {
		return settings{}, err
	}
	st := settings{
		Context:    c.Name,
		DB:         c.DB,
		Rehydrate:  c.Rehydrate,
		Export:     c.Export,
		S3Region:   c.S3Region,
		S3Endpoint: c.S3Endpoint,
	}
	if env := os.Getenv("MEDSTUDY_DB"); env != "" {
		st.DB = env
	}
	if dbURL != "" {
		st.DB = dbURL
	}
	if st.DB == "" {
		st.DB = durable.DefaultURL
	}
	if cmd.Flags().Changed("rehydrate") {
		st.Rehydrate = rehydrate
	}
	if st.Export == "" {
		p, err := cli.NewPaths()
		if err != nil {
			return settings{}, err
		}
		st.Export = "file://" + p.SnapshotDir()
	}
	return st, nil
}

// testKVOverride is set during tests to share a KV instance across commands.
var testKVOverride kv.Store

// activeSession is the registry kept alive by the shell command.
var activeSession *session

// session is an open registry plus the collectors its metrics register on.
type session struct {
	*registry.Registry
	prom     *prometheus.Registry
	settings settings
}

func openSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	st, err := resolveSettings(cmd)
	if err != nil {
		return nil, err
	}
	prom := prometheus.NewRegistry()
	opts := registry.Options{
		Durable:   durable.Options{URL: st.DB},
		Rehydrate: st.Rehydrate,
		Metrics:   registry.NewMetrics(prom),
	}
	if testKVOverride != nil {
		opts.Durable.KV = testKVOverride
	}
	slog.Debug("opening registry", "db", st.DB, "context", st.Context, "rehydrate", st.Rehydrate)
	reg, err := registry.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	s := &session{Registry: reg, prom: prom, settings: st}
	if loadFile != "" {
		if _, err := ingest.LoadFile(ctx, loadFile, reg, ingest.Options{}); err != nil {
			reg.Close()
			return nil, err
		}
	}
	return s, nil
}

// acquire returns the shell's session, or opens one for this command. The
// returned func releases it.
func acquire(cmd *cobra.Command) (*session, func(), error) {
	if activeSession != nil {
		return activeSession, func() {}, nil
	}
	s, err := openSession(cmd)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := s.Close(); err != nil {
			slog.Warn("close registry", "error", err)
		}
	}, nil
}

func outputFormat() cli.OutputFormat {
	f, _ := cli.ParseOutputFormat(formatOutput)
	return f
}

func output(cmd *cobra.Command, v any) error {
	return cli.Output(v, cli.OutputOptions{Format: outputFormat(), Writer: cmd.OutOrStdout()})
}

func isTable() bool {
	return outputFormat() == cli.FormatTable
}

// resetFlags restores every flag to its default so rootCmd can be executed
// again in the same process.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

var (
	inSrc io.Reader
	inBuf *bufio.Reader
)

// input returns a buffered reader over the command's input, shared by the
// shell loop and confirmation prompts.
func input(cmd *cobra.Command) *bufio.Reader {
	if r := cmd.InOrStdin(); r != inSrc || inBuf == nil {
		inSrc, inBuf = r, bufio.NewReader(r)
	}
	return inBuf
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	line, _ := input(cmd).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
