package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/ermalloc/block"
	"github.com/joshuapare/ermalloc/internal/layout"
)

var sizePolicies []string

func init() {
	rootCmd.AddCommand(newSizeCmd())
}

func newSizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "size <bytes>",
		Short: "Show the footprint of a protected allocation",
		Long: `The size command computes how many bytes an allocation of the given
payload size occupies under a policy stack, listed outermost first.

Example:
  ermctl size 10 --policy redundancy:3 --policy rs:4
  ermctl size 4096 --policy redundancy:2 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSize(args)
		},
	}
	cmd.Flags().StringArrayVarP(&sizePolicies, "policy", "p", nil, "Policy layer (nil, redundancy:N, rs:E); repeat to nest")
	return cmd
}

type sizeReport struct {
	Policies   string  `json:"policies"`
	Payload    int     `json:"payload"`
	BufferSize int     `json:"buffer_size"`
	Header     int     `json:"header"`
	Extent     int     `json:"extent"`
	Overhead   float64 `json:"overhead"`
}

func computeSize(payload string, specs []string) (sizeReport, error) {
	n, err := strconv.Atoi(payload)
	if err != nil {
		return sizeReport{}, fmt.Errorf("invalid size %q: %w", payload, err)
	}
	stack, err := parseStack(specs)
	if err != nil {
		return sizeReport{}, err
	}
	bufferSize, extent, err := block.Size(n, stack)
	if err != nil {
		return sizeReport{}, err
	}
	return sizeReport{
		Policies:   stack.String(),
		Payload:    n,
		BufferSize: bufferSize,
		Header:     layout.HeaderSize,
		Extent:     extent,
		Overhead:   float64(extent) / float64(n),
	}, nil
}

func runSize(args []string) error {
	r, err := computeSize(args[0], sizePolicies)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(r)
	}

	printInfo("Policies: %s\n", r.Policies)
	printInfo("  Payload:   %d bytes\n", r.Payload)
	printInfo("  Protected: %d bytes\n", r.BufferSize)
	printInfo("  Header:    %d bytes\n", r.Header)
	printInfo("  Total:     %d bytes (%.2fx)\n", r.Extent, r.Overhead)
	return nil
}
