package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/cmd/pagectl/logger"
	"github.com/joshuapare/pagekit/pgalloc"
)

var runFlags managerFlags

func init() {
	cmd := newRunCmd()
	runFlags.register(cmd)
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>",
		Short: "Execute an allocation script",
		Long: `The run command executes a script against a fresh allocator whose pages
all start out reserved. One command per line, '#' starts a comment:

  insert <start> <count>   make pages available
  remove <start> <count>   withdraw free pages
  alloc <order>            allocate 1<<order pages
  free <pfn> <order>       free a block
  dump                     print the free lists
  verify                   check invariants
  stats                    print page accounting

Numbers are decimal or 0x hex. Use "-" to read the script from stdin.

Example:
  pagectl run setup.txt --pages 4096 --max-order 10
  pagectl run - --json < setup.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(args[0], cmd.InOrStdin(), &runFlags)
		},
	}
}

// stepResult is the JSON form of one executed command.
type stepResult struct {
	Line    int    `json:"line"`
	Command string `json:"command"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

type runResult struct {
	Steps  []stepResult   `json:"steps"`
	Report pgalloc.Report `json:"report"`
}

func runScript(path string, stdin io.Reader, f *managerFlags) (err error) {
	var r io.Reader = stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer file.Close()
		r = file
	}

	cmds, err := parseScript(r)
	if err != nil {
		return err
	}
	printVerbose("Parsed %d commands from %s\n", len(cmds), path)

	m, err := f.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); err == nil {
			err = cerr
		}
	}()

	result := runResult{Steps: make([]stepResult, 0, len(cmds))}
	for _, c := range cmds {
		logger.Debug("executing command", "line", c.Line, "command", c.String())
		out, err := execGuarded(m, c)
		step := stepResult{Line: c.Line, Command: c.String(), Output: out}
		if err != nil {
			if !isStepError(err) {
				logger.Error("script aborted", "line", c.Line, "command", c.String(), "error", err)
				return fmt.Errorf("line %d: %s: %w", c.Line, c.Op, err)
			}
			logger.Warn("command failed", "line", c.Line, "command", c.String(), "error", err)
			step.Error = err.Error()
		}
		result.Steps = append(result.Steps, step)

		if jsonOut {
			continue
		}
		if step.Error != "" {
			printInfo("line %d: %s: %s\n", c.Line, c.Op, step.Error)
		} else {
			printInfo("%s", out)
		}
	}

	if jsonOut {
		result.Report = m.Report()
		return printJSON(result)
	}
	return nil
}

// execGuarded runs c and turns an invariant-violation panic (a
// *buddy.InvariantViolation or a --verify failure) into an error. The manager
// has already logged it at Error level.
func execGuarded(m *pgalloc.Manager, c command) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("invariant violated: %w", e)
		}
	}()
	return execCommand(m, c)
}
