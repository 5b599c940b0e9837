// Package report renders utilization results.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"coremeter/internal/config"
	"coremeter/internal/domain"
	"coremeter/internal/meter"
)

const (
	WindowStartedLine = "Begin core utilization window"
	WindowEndedLine   = "End core utilization window"
)

var (
	_ meter.Reporter = (*Text)(nil)
	_ meter.Reporter = (*JSON)(nil)
)

// New picks the renderer for the configured output format.
func New(format string, w io.Writer) (meter.Reporter, error) {
	switch format {
	case config.OutputText:
		return NewText(w), nil
	case config.OutputJSON:
		return NewJSON(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Text writes the plain line format.
type Text struct {
	w io.Writer
}

func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (t *Text) WindowStarted() {
	fmt.Fprintln(t.w, WindowStartedLine)
}

func (t *Text) WindowEnded() {
	fmt.Fprintln(t.w, WindowEndedLine)
}

func (t *Text) Report(results []domain.UtilizationResult) error {
	for _, r := range results {
		if _, err := fmt.Fprintf(t.w, "Processor %2d utilization percentage: %4.1f\n", r.Processor, r.Percent); err != nil {
			return err
		}
	}
	return nil
}

// JSON writes one document holding every result. Window markers are omitted
// so the output stays parseable.
type JSON struct {
	w io.Writer
}

func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w}
}

func (j *JSON) WindowStarted() {}

func (j *JSON) WindowEnded() {}

func (j *JSON) Report(results []domain.UtilizationResult) error {
	if results == nil {
		results = []domain.UtilizationResult{}
	}

	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Processors []domain.UtilizationResult `json:"processors"`
	}{Processors: results})
}
