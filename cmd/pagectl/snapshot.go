package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSnapshotCmd())
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <out> [script]",
		Short: "Run shell commands from a script and save the result",
		Long: `The snapshot command runs repl commands read from a script file (or
stdin when no script is given) against a fresh database, then writes the
database to a snapshot file.

Example:
  pagectl snapshot people.pgks setup.txt
  printf 'create t uint varchar\ninsert t 1 hello\n' | pagectl snapshot t.pgks`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 2 {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			out := io.Writer(os.Stdout)
			if quiet {
				out = io.Discard
			}
			return runScript(in, out, args[0], pageSize)
		},
	}
	return cmd
}

// runScript executes each input line in a new session and saves the
// database to path. A .exit line stops reading early.
func runScript(in io.Reader, out io.Writer, path string, size int) error {
	s, err := newSession(out, size)
	if err != nil {
		return err
	}

	sc := bufio.NewScanner(in)
	lines := 0
	for sc.Scan() {
		lines++
		if s.exec(sc.Text()) {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	printVerbose("Executed %d lines\n", lines)

	if err := s.db.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid database: %w", err)
	}
	return s.save(path)
}
