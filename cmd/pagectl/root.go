package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/internal/logger"
)

// pageSizeEnv overrides the default page size when --page-size is not given.
const pageSizeEnv = "PAGEKIT_PAGE_SIZE"

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	debug    bool
	pageSize int
)

var rootCmd = &cobra.Command{
	Use:   "pagectl",
	Short: "Build and inspect slotted page stores",
	Long: `pagectl works with pagekit page stores: fixed-size pages holding
variable-length cells, grouped into tables and saved as compressed snapshots.
It offers an interactive shell, a page allocator demo, and snapshot tooling.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Write debug logs to stderr")
	rootCmd.PersistentFlags().
		IntVar(&pageSize, "page-size", format.DefaultPageSize, "Page size in bytes (env "+pageSizeEnv+")")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup initializes logging and resolves the page size before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	if err := logger.Init(logger.Options{
		Enabled: debug,
		Writer:  os.Stderr,
		Level:   slog.LevelDebug,
		JSON:    jsonOut,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	size, err := resolvePageSize(cmd.Flags().Changed("page-size"), pageSize, os.Getenv(pageSizeEnv))
	if err != nil {
		return err
	}
	pageSize = size
	return nil
}

// resolvePageSize picks the flag value when it was set explicitly, then the
// environment, then the flag default.
func resolvePageSize(flagSet bool, flagValue int, env string) (int, error) {
	if flagSet || env == "" {
		return flagValue, nil
	}
	n, err := strconv.Atoi(env)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", pageSizeEnv, err)
	}
	return n, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
