// File: bench/report.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bench

import (
	"io"
	"sort"

	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report is the printable outcome of a run.
type Report struct {
	Bench      string         `json:"bench"`
	Status     string         `json:"status"`
	Rounds     int            `json:"rounds"`
	Warmup     int            `json:"warmup"`
	ElapsedNS  int64          `json:"elapsed_ns"`
	PerRoundNS int64          `json:"per_round_ns"`
	Cycles     uint64         `json:"cycles"`
	Completed  uint64         `json:"completed_rounds"`
	Stages     uint64         `json:"stages"`
	Verified   bool           `json:"verified"`
	Options    map[string]any `json:"options,omitempty"`
	Metrics    map[string]any `json:"metrics,omitempty"`
}

// NewReport builds a report from res and the resolved options.
func NewReport(res *Result, options, metrics map[string]any) *Report {
	status := "finished"
	if res.Verified {
		status = "test passed"
	}
	return &Report{
		Bench:      res.Bench,
		Status:     status,
		Rounds:     res.Rounds,
		Warmup:     res.Warmup,
		ElapsedNS:  res.Elapsed.Nanoseconds(),
		PerRoundNS: res.PerRound().Nanoseconds(),
		Cycles:     res.Cycles,
		Completed:  res.Stats.Rounds,
		Stages:     res.Stats.Stages,
		Verified:   res.Verified,
		Options:    options,
		Metrics:    metrics,
	}
}

// Line returns the one-line completion message, e.g. "gather test passed".
func (r *Report) Line() string { return r.Bench + " " + r.Status }

// WriteText prints a human-readable summary with grouped digits.
func (r *Report) WriteText(w io.Writer) error {
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "%s\n", r.Line()); err != nil {
		return err
	}
	p.Fprintf(w, "  rounds      %d (+%d warm-up)\n", r.Rounds, r.Warmup)
	p.Fprintf(w, "  elapsed     %d ns\n", r.ElapsedNS)
	p.Fprintf(w, "  per round   %d ns\n", r.PerRoundNS)
	if r.Cycles > 0 {
		p.Fprintf(w, "  cycles      %d\n", r.Cycles)
	}
	p.Fprintf(w, "  completed   %d rounds, %d stages\n", r.Completed, r.Stages)
	keys := make([]string, 0, len(r.Options))
	for k := range r.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Fprintf(w, "  %-18s %v\n", k, r.Options[k])
	}
	return nil
}

// WriteJSON encodes the report as one JSON document.
func (r *Report) WriteJSON(w io.Writer) error {
	b, err := sonnet.Marshal(r)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
