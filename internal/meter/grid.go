package meter

import (
	"fmt"

	"coremeter/internal/domain"
)

// Grid holds the begin and end tick counters for every processor and state,
// addressed as [sample][state][processor].
type Grid struct {
	processors int
	cells      [domain.NumSamples][domain.NumStates][]domain.TickCount
	filled     [domain.NumSamples]bool
}

func NewGrid(processors int) (*Grid, error) {
	if processors <= 0 {
		return nil, fmt.Errorf("%w: grid needs at least one processor, got %d", domain.ErrOutOfRange, processors)
	}

	g := &Grid{processors: processors}
	for s := range g.cells {
		for st := range g.cells[s] {
			g.cells[s][st] = make([]domain.TickCount, processors)
		}
	}
	return g, nil
}

func (g *Grid) Processors() int {
	return g.processors
}

func (g *Grid) Filled(sample domain.SampleIndex) bool {
	return sample.Valid() && g.filled[sample]
}

func (g *Grid) At(sample domain.SampleIndex, state domain.CPUState, processor int) (domain.TickCount, error) {
	if err := g.check(sample, state, processor); err != nil {
		return 0, err
	}
	return g.cells[sample][state][processor], nil
}

// Store writes the first Processors() entries of snap into sample. The
// snapshot must cover every processor; anything beyond is left out.
func (g *Grid) Store(sample domain.SampleIndex, snap domain.Snapshot) error {
	if !sample.Valid() {
		return fmt.Errorf("%w: sample %s", domain.ErrOutOfRange, sample)
	}
	if len(snap) < g.processors {
		return fmt.Errorf("%w: snapshot covers %d of %d processors",
			domain.ErrAccountingUnavailable, len(snap), g.processors)
	}

	for p := 0; p < g.processors; p++ {
		for _, st := range domain.CPUStates() {
			g.cells[sample][st][p] = snap[p][st]
		}
	}
	g.filled[sample] = true
	return nil
}

// Ticks returns one processor's counters for sample.
func (g *Grid) Ticks(sample domain.SampleIndex, processor int) (domain.CPUTicks, error) {
	var t domain.CPUTicks
	if err := g.check(sample, domain.StateUser, processor); err != nil {
		return t, err
	}
	for _, st := range domain.CPUStates() {
		t[st] = g.cells[sample][st][processor]
	}
	return t, nil
}

func (g *Grid) check(sample domain.SampleIndex, state domain.CPUState, processor int) error {
	switch {
	case !sample.Valid():
		return fmt.Errorf("%w: sample %s", domain.ErrOutOfRange, sample)
	case !state.Valid():
		return fmt.Errorf("%w: state %s", domain.ErrOutOfRange, state)
	case processor < 0 || processor >= g.processors:
		return fmt.Errorf("%w: processor %d not in [0,%d)", domain.ErrOutOfRange, processor, g.processors)
	}
	return nil
}
