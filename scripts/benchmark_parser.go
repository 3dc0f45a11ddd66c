//go:build ignore

// benchmark_parser turns `go test -bench` output into a markdown report.
//
//	go test -bench . -benchmem ./page/... | go run scripts/benchmark_parser.go
//	go run scripts/benchmark_parser.go -input new.txt -baseline old.txt -output report.md
//
// Both plain and -json test output are accepted.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Package     string
	Name        string
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

func (r BenchmarkResult) key() string { return r.Package + "." + r.Name }

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	baselineFile = flag.String("baseline", "", "Earlier benchmark output to compare against")
	outputFile   = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet        = flag.Bool("quiet", false, "Suppress progress output")
)

// BenchmarkOpen/small-8    10000    12450 ns/op    4096 B/op    8 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+?)(?:-\d+)?\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+B/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
)

func main() {
	flag.Parse()

	results, err := parseFile(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	var baseline map[string]BenchmarkResult
	if *baselineFile != "" {
		base, err := parseFile(*baselineFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading baseline: %v\n", err)
			os.Exit(1)
		}
		baseline = make(map[string]BenchmarkResult, len(base))
		for _, r := range base {
			baseline[r.key()] = r
		}
	}

	report := generateMarkdownReport(results, baseline)

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(report), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
		}
		return
	}
	fmt.Fprint(os.Stdout, report)
}

func parseFile(path string) ([]BenchmarkResult, error) {
	if path == "" {
		return parseBenchmarks(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseBenchmarks(f), nil
}

func parseBenchmarks(r io.Reader) []BenchmarkResult {
	var results []BenchmarkResult
	pkg := ""

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		// Unwrap test2json events
		var event struct {
			Package string
			Output  string
		}
		if err := json.Unmarshal([]byte(line), &event); err == nil && event.Output != "" {
			line = event.Output
			if event.Package != "" {
				pkg = event.Package
			}
		}
		line = strings.TrimSpace(line)

		if p, ok := strings.CutPrefix(line, "pkg: "); ok {
			pkg = p
			continue
		}

		matches := benchmarkRegex.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		res := BenchmarkResult{Package: pkg, Name: strings.TrimPrefix(matches[1], "Benchmark")}
		res.Iterations, _ = strconv.Atoi(matches[2])
		res.NsPerOp, _ = strconv.ParseFloat(matches[3], 64)
		if matches[4] != "" {
			res.BytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			res.AllocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}
		results = append(results, res)
	}
	return results
}

func generateMarkdownReport(results []BenchmarkResult, baseline map[string]BenchmarkResult) string {
	var sb strings.Builder

	sb.WriteString("# Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", time.Now().Format(time.RFC3339))

	byPkg := make(map[string][]BenchmarkResult)
	for _, r := range results {
		byPkg[r.Package] = append(byPkg[r.Package], r)
	}
	pkgs := make([]string, 0, len(byPkg))
	for p := range byPkg {
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)

	for _, p := range pkgs {
		name := p
		if name == "" {
			name = "(unknown package)"
		}
		fmt.Fprintf(&sb, "## %s\n\n", name)
		if baseline != nil {
			sb.WriteString("| Benchmark | ns/op | B/op | allocs/op | Δ ns/op |\n")
			sb.WriteString("|-----------|------:|-----:|----------:|--------:|\n")
		} else {
			sb.WriteString("| Benchmark | ns/op | B/op | allocs/op |\n")
			sb.WriteString("|-----------|------:|-----:|----------:|\n")
		}

		rows := byPkg[p]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
		for _, r := range rows {
			fmt.Fprintf(&sb, "| %s | %s | %d | %d |", r.Name, formatNs(r.NsPerOp), r.BytesPerOp, r.AllocsPerOp)
			if baseline != nil {
				sb.WriteString(" " + formatDelta(r, baseline) + " |")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatDelta(r BenchmarkResult, baseline map[string]BenchmarkResult) string {
	base, ok := baseline[r.key()]
	if !ok || base.NsPerOp == 0 {
		return "new"
	}
	return fmt.Sprintf("%+.1f%%", (r.NsPerOp-base.NsPerOp)/base.NsPerOp*100)
}

func formatNs(ns float64) string {
	switch {
	case ns >= 1e6:
		return fmt.Sprintf("%.2f ms", ns/1e6)
	case ns >= 1e3:
		return fmt.Sprintf("%.2f µs", ns/1e3)
	default:
		return fmt.Sprintf("%.1f ns", ns)
	}
}
