package faults

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/joshuapare/ermalloc/block"
	"github.com/joshuapare/ermalloc/memory"
	"github.com/joshuapare/ermalloc/policy"
)

// Region selects where flips land.
type Region string

const (
	// RegionBuffer spreads flips over the whole protected buffer.
	RegionBuffer Region = "buffer"
	// RegionData restricts flips to the payload.
	RegionData Region = "data"
)

// ErrBadCampaign indicates a campaign that cannot run.
var ErrBadCampaign = errors.New("faults: invalid campaign")

// Campaign describes a fault-injection run.
type Campaign struct {
	Size   int          `json:"size"`
	Stack  policy.Stack `json:"-"`
	Flips  int          `json:"flips"`
	Trials int          `json:"trials"`
	Seed   uint64       `json:"seed"`
	Region Region       `json:"region"`
}

// Result summarizes a campaign. Every trial lands in exactly one of
// Repaired, Uncorrectable or Miscorrected.
type Result struct {
	ID       string `json:"id,omitempty"`
	Policies string `json:"policies"`
	Campaign

	BufferSize int `json:"buffer_size"`
	Detected   int `json:"detected"`

	// Repaired trials ended with the original payload.
	Repaired int `json:"repaired"`
	// Uncorrectable trials were reported as beyond repair.
	Uncorrectable int `json:"uncorrectable"`
	// Miscorrected trials claimed success but the payload differs.
	Miscorrected int `json:"miscorrected"`

	CorrectedErrors uint64 `json:"corrected_errors"`
}

func (c *Campaign) validate() error {
	if c.Size <= 0 || c.Trials <= 0 || c.Flips < 0 {
		return fmt.Errorf("%w: size=%d trials=%d flips=%d", ErrBadCampaign, c.Size, c.Trials, c.Flips)
	}
	switch c.Region {
	case "":
		c.Region = RegionBuffer
	case RegionBuffer, RegionData:
	default:
		return fmt.Errorf("%w: unknown region %q", ErrBadCampaign, c.Region)
	}
	return nil
}

// Run executes c against blocks from p. It stops early with ctx's error if
// ctx is cancelled between trials.
func Run(ctx context.Context, p memory.Provider, c Campaign) (Result, error) {
	if err := c.validate(); err != nil {
		return Result{}, err
	}
	bufferSize, _, err := block.Size(c.Size, c.Stack)
	if err != nil {
		return Result{}, err
	}

	res := Result{Policies: c.Stack.String(), Campaign: c, BufferSize: bufferSize}
	in := NewInjector(c.Seed)
	for trial := 0; trial < c.Trials; trial++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := runTrial(p, c, in, &res); err != nil {
			return res, fmt.Errorf("faults: trial %d: %w", trial, err)
		}
	}
	return res, nil
}

func runTrial(p memory.Provider, c Campaign, in *Injector, res *Result) (err error) {
	ex, err := block.New(p, c.Size, c.Stack, false)
	if err != nil {
		return err
	}
	b, err := ex.Take()
	if err != nil {
		ex.Invalidate()
		return err
	}
	defer func() {
		ex, xerr := b.Exclusive()
		if xerr == nil {
			xerr = block.Destroy(p, ex)
		}
		if err == nil {
			err = xerr
		}
	}()

	in.Fill(b.DataSlice())
	want := blake3.Sum256(b.DataSlice())
	b.Apply()

	target := b.FullBuffer()
	if c.Region == RegionData {
		target = b.DataSlice()
	}
	in.FlipN(target, c.Flips)
	if b.IsCorrupted() {
		res.Detected++
	}

	n, err := b.Correct()
	switch {
	case errors.Is(err, policy.ErrUncorrectable):
		res.Uncorrectable++
	case err != nil:
		return err
	case blake3.Sum256(b.DataSlice()) != want:
		res.Miscorrected++
	default:
		res.Repaired++
	}
	res.CorrectedErrors += uint64(n)
	return nil
}
