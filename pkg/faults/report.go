package faults

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteText prints a human-readable summary, formatting numbers for tag.
func (r Result) WriteText(w io.Writer, tag language.Tag) error {
	p := message.NewPrinter(tag)
	pct := func(n int) float64 {
		if r.Trials == 0 {
			return 0
		}
		return 100 * float64(n) / float64(r.Trials)
	}

	if r.ID != "" {
		if _, err := p.Fprintf(w, "Campaign %s\n", r.ID); err != nil {
			return err
		}
	}
	_, err := p.Fprintf(w,
		"Policies:        %s\n"+
			"Payload:         %d bytes (%d protected)\n"+
			"Trials:          %d x %d flips in %s, seed %d\n"+
			"Detected:        %d (%.1f%%)\n"+
			"Repaired:        %d (%.1f%%)\n"+
			"Uncorrectable:   %d (%.1f%%)\n"+
			"Miscorrected:    %d (%.1f%%)\n"+
			"Errors repaired: %d\n",
		r.Policies,
		r.Size, r.BufferSize,
		r.Trials, r.Flips, r.Region, r.Seed,
		r.Detected, pct(r.Detected),
		r.Repaired, pct(r.Repaired),
		r.Uncorrectable, pct(r.Uncorrectable),
		r.Miscorrected, pct(r.Miscorrected),
		r.CorrectedErrors,
	)
	return err
}
