package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/cli"
)

const shellHelp = `Commands run against one working set that lives until you exit:
  ingest <file>                       load a study file
  list [--cards] [--jq expr]          list studies in insertion order
  find <id|exact|name|modality|sex> <q>
  durable find <id|name|modality|sex> <q>
  delete id <id> | delete pos <n> | delete all
  sync | stats | snapshot export|import|list
  status                              show the header line
  help                                show this help
  exit                                leave the shell
Quote values that contain spaces: find name "Ana Perez"`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session keeping one working set alive",
	Long: `Start an interactive session. The registry is opened once (with
--db, --rehydrate and --load applied) and every command typed at the prompt
runs against it, so studies ingested earlier stay in memory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if activeSession != nil {
			return errors.New("already in a shell")
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		activeSession = s
		defer func() {
			activeSession = nil
			s.Close()
		}()

		out := cmd.OutOrStdout()
		styles := cli.NewStyles(cli.DefaultTheme)
		status := func() {
			fmt.Fprintln(out, styles.Header(s.Len(), s.TotalSizeBytes(), s.DurableState().String()))
		}
		status()
		fmt.Fprintln(out, styles.Help.Render(`type "help" for commands, "exit" to quit`))

		savedFormat, savedVerbose := formatOutput, verbose
		in := input(cmd)
		for {
			fmt.Fprint(out, "medstudy> ")
			line, err := in.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			eof := err != nil
			fields, perr := splitArgs(strings.TrimSpace(line))
			switch {
			case perr != nil:
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", perr)
			case len(fields) == 0:
			case fields[0] == "exit" || fields[0] == "quit":
				return nil
			case fields[0] == "help":
				fmt.Fprintln(out, shellHelp)
			case fields[0] == "status":
				status()
			case fields[0] == "shell":
				fmt.Fprintln(cmd.ErrOrStderr(), "Error: already in a shell")
			default:
				resetFlags(rootCmd)
				formatOutput, verbose = savedFormat, savedVerbose
				rootCmd.SetArgs(fields)
				if err := rootCmd.ExecuteContext(cmd.Context()); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				}
			}
			if eof {
				fmt.Fprintln(out)
				return nil
			}
		}
	},
}

// splitArgs splits a command line on spaces, keeping double-quoted runs
// together.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case r == ' ' && !inQuote:
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
