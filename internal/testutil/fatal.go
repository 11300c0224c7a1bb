// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"testing"

	"github.com/joshuapare/ermalloc/internal/fatal"
)

// ExpectFatal runs fn with a fatal handler that panics instead of exiting and
// returns the diagnostic. The test fails if fn returns without a contract
// violation. Tests using it must not run in parallel: the handler is global.
//
// Example:
//
//	msg := testutil.ExpectFatal(t, func() {
//	    policy.Redundancy(3).Split(make([]byte, 4))
//	})
//	require.Contains(t, msg, "multiple")
func ExpectFatal(t testing.TB, fn func()) (msg string) {
	t.Helper()
	restore := fatal.SetHandler(func(m string) { panic(fatal.Violation(m)) })
	defer restore()
	defer func() {
		r := recover()
		v, ok := r.(fatal.Violation)
		if !ok {
			if r != nil {
				panic(r)
			}
			t.Fatalf("expected a fatal contract violation, fn returned normally")
		}
		msg = string(v)
	}()
	fn()
	return ""
}
