// Command bindings builds the C shared library exposing the allocator:
//
//	go build -buildmode=c-shared -o libermalloc.so .
//
// Include ermalloc.h from C. Set ERMALLOC_LOG=debug|info|warn|error to log
// to stderr.
package main

import (
	"fmt"
	"os"

	"github.com/joshuapare/ermalloc/internal/logger"
	"github.com/joshuapare/ermalloc/pkg/erm"
)

const logEnv = "ERMALLOC_LOG"

func init() {
	if v, ok := os.LookupEnv(logEnv); ok {
		level, err := logger.ParseLevel(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ermalloc: %s: %v\n", logEnv, err)
		} else {
			logger.Init(logger.Options{Enabled: true, Level: level})
		}
	}
	erm.SetDefault(erm.New(erm.Options{Provider: libcProvider{}, Name: "cabi"}))
}

func main() {}
