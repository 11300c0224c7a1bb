package main

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBenchmarks(t *testing.T) {
	input := `goos: linux
BenchmarkStackApply/redundancy:3,rs:8/64-8   	 1000000	      1042 ns/op	  61.42 MB/s	       0 B/op	       0 allocs/op
{"Action":"output","Output":"BenchmarkStackCorrect/rs:8/16-8  500  2500.5 ns/op  6.40 MB/s  96 B/op  3 allocs/op\n"}
BenchmarkSomethingElse-8 10 5 ns/op
PASS
`
	results := parseBenchmarks(bufio.NewScanner(strings.NewReader(input)))
	require.Len(t, results, 2)

	assert.Equal(t, BenchmarkResult{
		Name:       "BenchmarkStackApply/redundancy:3,rs:8/64-8",
		Operation:  "Apply",
		Policies:   "redundancy:3,rs:8",
		Payload:    64,
		Iterations: 1000000,
		NsPerOp:    1042,
		MBPerSec:   61.42,
	}, results[0])
	assert.Equal(t, "Correct", results[1].Operation)
	assert.Equal(t, int64(3), results[1].AllocsPerOp)

	report := generateMarkdownReport(results)
	assert.Contains(t, report, "## Apply")
	assert.Contains(t, report, "| `rs:8` | 16 B | 2.50 µs | 6.4 MB/s | 96 B | 3 |")
}
