package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/database"
	"github.com/joshuapare/pagekit/tuple"
)

const helpText = `Commands:
  create <table> <type>...   Create (or replace) a table; types: uint int float double varchar
  insert <table> <value>...  Append a row; NULL is accepted in any column
  select <table>             Print every row in insertion order
  .tables                    List tables and their column types
  .stats                     Show page usage per table
  .validate                  Check every page of every table
  .save <file>               Write a snapshot of the database
  .load <file>               Replace the database with a snapshot
  .help                      Show this help
  .exit                      Leave the shell
`

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".tables"),
	readline.PcItem(".stats"),
	readline.PcItem(".validate"),
	readline.PcItem(".save"),
	readline.PcItem(".load"),
	readline.PcItem(".exit"),
	readline.PcItem("create"),
	readline.PcItem("insert"),
	readline.PcItem("select"),
)

var replHistory string

func init() {
	cmd := newReplCmd()
	cmd.Flags().StringVar(&replHistory, "history", filepath.Join(os.TempDir(), ".pagectl_history"), "History file")
	rootCmd.AddCommand(cmd)
}

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl [snapshot]",
		Short: "Start an interactive shell",
		Long: `The repl command starts an interactive shell over an in-memory
database. If a snapshot file is given it is loaded first.

Example:
  pagectl repl
  pagectl repl people.pgks
  pagectl repl --page-size 512`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(args)
		},
	}
	return cmd
}

func runRepl(args []string) error {
	s, err := newSession(os.Stdout, pageSize)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := s.load(args[0]); err != nil {
			return err
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pagekit> ",
		HistoryFile:     replHistory,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	printInfo("Enter .help for usage hints.\n")
	for {
		line, readErr := rl.Readline()
		if readErr != nil {
			if errors.Is(readErr, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			}
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", readErr)
		}
		if s.exec(line) {
			return nil
		}
	}
}

// session executes shell commands against one database.
type session struct {
	db       *database.Database
	out      io.Writer
	pageSize int
}

func newSession(out io.Writer, pageSize int) (*session, error) {
	db, err := database.New(database.Options{PageSize: pageSize})
	if err != nil {
		return nil, err
	}
	return &session{db: db, out: out, pageSize: pageSize}, nil
}

// exec runs one input line and reports whether the shell should exit.
// Command failures are printed, not returned, so the shell keeps going.
func (s *session) exec(line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "create":
		err = s.create(args)
	case "insert":
		err = s.insert(args)
	case "select":
		err = s.selectRows(args)
	case ".tables":
		s.tables()
	case ".stats":
		err = s.stats()
	case ".validate":
		err = s.validate()
	case ".save":
		err = s.withPath(args, s.save)
	case ".load":
		err = s.withPath(args, s.load)
	case ".help":
		fmt.Fprint(s.out, helpText)
	case ".exit", ".quit":
		return true
	default:
		err = fmt.Errorf("unsupported input: %q", line)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

func (s *session) create(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: create <table> <type>...")
	}
	schema, err := tuple.ParseSchema(args[1:])
	if err != nil {
		return err
	}
	replaced, err := s.db.Create(args[0], schema)
	if err != nil {
		return err
	}
	if replaced {
		fmt.Fprintf(s.out, "overwritten table %s %s\n", args[0], schema)
	} else {
		fmt.Fprintf(s.out, "created table %s %s\n", args[0], schema)
	}
	return nil
}

func (s *session) insert(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: insert <table> <value>...")
	}
	id, err := s.db.Insert(args[0], args[1:])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "inserted row %d\n", id)
	return nil
}

func (s *session) selectRows(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: select <table>")
	}
	rows, err := s.db.Select(args[0])
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintln(s.out, strings.Join(row, " | "))
	}
	fmt.Fprintf(s.out, "(%d rows)\n", len(rows))
	return nil
}

func (s *session) tables() {
	for _, name := range s.db.Names() {
		if t, ok := s.db.Get(name); ok {
			fmt.Fprintf(s.out, "%s %s\n", name, t.Schema())
		}
	}
}

func (s *session) stats() error {
	stats, err := s.db.Stats()
	if err != nil {
		return err
	}
	for _, st := range stats {
		fmt.Fprintf(s.out, "%s: %d rows, %d pages, %d bytes allocated, %d bytes free\n",
			st.Name, st.Rows, st.Pages, st.AllocatedBytes, st.FreeBytes)
	}
	fmt.Fprintf(s.out, "pool: %d pages of %d bytes\n", s.db.Pool().NumPages(), s.db.Pool().PageSize())
	return nil
}

func (s *session) validate() error {
	if err := s.db.Validate(); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "ok")
	return nil
}

func (s *session) withPath(args []string, fn func(string) error) error {
	if len(args) != 1 {
		return errors.New("expected a single file path")
	}
	return fn(args[0])
}

func (s *session) save(path string) error {
	if err := s.db.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "saved %d pages to %s\n", s.db.Pool().NumPages(), path)
	return nil
}

func (s *session) load(path string) error {
	db, err := database.Load(path)
	if err != nil {
		return err
	}
	s.db = db
	fmt.Fprintf(s.out, "loaded %d tables from %s\n", len(db.Names()), path)
	return nil
}
