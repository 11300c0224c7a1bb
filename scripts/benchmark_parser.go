package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed policy-stack benchmark result.
type BenchmarkResult struct {
	Name        string
	Operation   string // Apply, Correct, IsCorrupted
	Policies    string // e.g. "redundancy:3,rs:8"
	Payload     int
	Iterations  int
	NsPerOp     float64
	MBPerSec    float64
	BytesPerOp  int64
	AllocsPerOp int64
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()

	// Read benchmark output
	var scanner *bufio.Scanner
	var inputF *os.File
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		inputF = f
		scanner = bufio.NewScanner(f)
	} else {
		scanner = bufio.NewScanner(os.Stdin)
	}

	results := parseBenchmarks(scanner)
	if inputF != nil {
		inputF.Close()
	}

	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	report := generateMarkdownReport(results)

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(report), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
		}
	} else {
		fmt.Fprint(os.Stdout, report)
	}
}

// BenchmarkStackApply/redundancy:3,rs:8/64-8   1000000   1042 ns/op   61.42 MB/s   0 B/op   0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(BenchmarkStack\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+MB/s)?(?:\s+(\d+)\s+B/op)?(?:\s+(\d+)\s+allocs/op)?`,
)

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	for scanner.Scan() {
		line := scanner.Text()

		// Try to parse as JSON (from -json flag)
		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
		}

		r, ok := parseLine(strings.TrimSpace(line))
		if ok {
			results = append(results, r)
		}
	}
	return results
}

func parseLine(line string) (BenchmarkResult, bool) {
	matches := benchmarkRegex.FindStringSubmatch(line)
	if matches == nil {
		return BenchmarkResult{}, false
	}

	// Format: BenchmarkStack<Operation>/<policies>/<payload>-<procs>
	parts := strings.Split(matches[1], "/")
	if len(parts) != 3 {
		return BenchmarkResult{}, false
	}
	payload := parts[2]
	if dashIdx := strings.LastIndex(payload, "-"); dashIdx > 0 {
		payload = payload[:dashIdx]
	}

	r := BenchmarkResult{
		Name:      matches[1],
		Operation: strings.TrimPrefix(parts[0], "BenchmarkStack"),
		Policies:  parts[1],
	}
	r.Payload, _ = strconv.Atoi(payload)
	r.Iterations, _ = strconv.Atoi(matches[2])
	r.NsPerOp, _ = strconv.ParseFloat(matches[3], 64)
	if matches[4] != "" {
		r.MBPerSec, _ = strconv.ParseFloat(matches[4], 64)
	}
	if matches[5] != "" {
		r.BytesPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
	}
	if matches[6] != "" {
		r.AllocsPerOp, _ = strconv.ParseInt(matches[6], 10, 64)
	}
	return r, true
}

func generateMarkdownReport(results []BenchmarkResult) string {
	var sb strings.Builder

	sb.WriteString("# Policy Stack Benchmark Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))

	byOp := make(map[string][]BenchmarkResult)
	for _, r := range results {
		byOp[r.Operation] = append(byOp[r.Operation], r)
	}
	ops := make([]string, 0, len(byOp))
	for op := range byOp {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	for _, op := range ops {
		rs := byOp[op]
		sort.Slice(rs, func(i, j int) bool {
			if rs[i].Policies != rs[j].Policies {
				return rs[i].Policies < rs[j].Policies
			}
			return rs[i].Payload < rs[j].Payload
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", op))
		sb.WriteString("| Policies | Payload | Time | Throughput | Memory | Allocs |\n")
		sb.WriteString("|----------|---------|------|------------|--------|--------|\n")
		for _, r := range rs {
			sb.WriteString(fmt.Sprintf("| `%s` | %d B | %s | %.1f MB/s | %s | %d |\n",
				r.Policies, r.Payload, formatNumber(r.NsPerOp), r.MBPerSec,
				formatBytes(r.BytesPerOp), r.AllocsPerOp))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatNumber(ns float64) string {
	switch {
	case ns >= 1e6:
		return fmt.Sprintf("%.2f ms", ns/1e6)
	case ns >= 1e3:
		return fmt.Sprintf("%.2f µs", ns/1e3)
	default:
		return fmt.Sprintf("%.0f ns", ns)
	}
}

func formatBytes(b int64) string {
	switch {
	case b >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(b)/(1024*1024))
	case b >= 1024:
		return fmt.Sprintf("%.1f KB", float64(b)/1024)
	default:
		return fmt.Sprintf("%d B", b)
	}
}
