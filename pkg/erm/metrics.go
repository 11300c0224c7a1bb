package erm

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	allocatorPrometheusMetrics sync.Once

	allocatorOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ermalloc",
			Subsystem: "allocator",
			Name:      "operations_total",
			Help:      "Total number of allocator entry point calls.",
		},
		[]string{"name", "operation"})
	allocatorAllocationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ermalloc",
			Subsystem: "allocator",
			Name:      "allocation_failures_total",
			Help:      "Number of allocations the memory provider could not satisfy.",
		},
		[]string{"name"})
	allocatorCorrectedErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ermalloc",
			Subsystem: "allocator",
			Name:      "corrected_errors_total",
			Help:      "Number of errors repaired by correction passes.",
		},
		[]string{"name"})
	allocatorUncorrectableTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ermalloc",
			Subsystem: "allocator",
			Name:      "uncorrectable_total",
			Help:      "Number of correction passes that left a block uncorrectable.",
		},
		[]string{"name"})
	allocatorLiveBlocks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ermalloc",
			Subsystem: "allocator",
			Name:      "live_blocks",
			Help:      "Number of blocks currently allocated.",
		},
		[]string{"name"})
)

const (
	opAlloc        = "Alloc"
	opFree         = "Free"
	opCalloc       = "Calloc"
	opRealloc      = "Realloc"
	opReallocArray = "ReallocArray"
	opSetup        = "SetupPolicies"
	opCorrect      = "CorrectBuffer"
	opRead         = "ReadBuf"
	opWrite        = "WriteBuf"
)

type allocatorMetrics struct {
	operations    map[string]prometheus.Counter
	failures      prometheus.Counter
	corrected     prometheus.Counter
	uncorrectable prometheus.Counter
	live          prometheus.Gauge
}

func newAllocatorMetrics(name string) *allocatorMetrics {
	allocatorPrometheusMetrics.Do(func() {
		prometheus.MustRegister(allocatorOperationsTotal)
		prometheus.MustRegister(allocatorAllocationFailuresTotal)
		prometheus.MustRegister(allocatorCorrectedErrorsTotal)
		prometheus.MustRegister(allocatorUncorrectableTotal)
		prometheus.MustRegister(allocatorLiveBlocks)
	})

	m := &allocatorMetrics{
		operations:    make(map[string]prometheus.Counter),
		failures:      allocatorAllocationFailuresTotal.WithLabelValues(name),
		corrected:     allocatorCorrectedErrorsTotal.WithLabelValues(name),
		uncorrectable: allocatorUncorrectableTotal.WithLabelValues(name),
		live:          allocatorLiveBlocks.WithLabelValues(name),
	}
	for _, op := range []string{opAlloc, opFree, opCalloc, opRealloc, opReallocArray, opSetup, opCorrect, opRead, opWrite} {
		m.operations[op] = allocatorOperationsTotal.WithLabelValues(name, op)
	}
	return m
}
