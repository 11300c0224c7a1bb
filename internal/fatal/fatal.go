// Package fatal reports caller-contract violations. A violation means the
// memory-safety contract between the caller and the allocator is already
// broken, so the default handler writes a diagnostic to stderr and exits
// without unwinding.
package fatal

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Handler receives the formatted diagnostic. A Handler must not return; if it
// does, Fatalf panics so control never resumes at the violation site.
type Handler func(msg string)

var (
	mu      sync.Mutex
	handler Handler = exit
)

func exit(msg string) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Error("ermalloc: fatal contract violation", "reason", msg)
	os.Exit(1)
}

// Fatalf formats a diagnostic and hands it to the current handler.
func Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	mu.Lock()
	h := handler
	mu.Unlock()
	h(msg)
	panic("fatal: handler returned for: " + msg)
}

// SetHandler replaces the handler and returns a function restoring the
// previous one. Intended for tests:
//
//	restore := fatal.SetHandler(func(msg string) { panic(fatal.Violation(msg)) })
//	defer restore()
func SetHandler(h Handler) (restore func()) {
	mu.Lock()
	prev := handler
	handler = h
	mu.Unlock()
	return func() {
		mu.Lock()
		handler = prev
		mu.Unlock()
	}
}

// Violation is the panic value used by test handlers so callers can tell a
// contract violation apart from an ordinary runtime panic.
type Violation string

func (v Violation) Error() string { return string(v) }
