// Package meter measures per-processor utilization over a single window.
package meter

import (
	"context"
	"fmt"
	"time"

	"coremeter/internal/domain"
	"coremeter/internal/logger"
	"coremeter/internal/system"
)

type WindowState int

const (
	Created WindowState = iota
	WindowOpen
	WindowClosed
	Reported
)

func (s WindowState) String() string {
	switch s {
	case Created:
		return "created"
	case WindowOpen:
		return "window-open"
	case WindowClosed:
		return "window-closed"
	case Reported:
		return "reported"
	default:
		return fmt.Sprintf("WindowState(%d)", int(s))
	}
}

// Reporter receives the window markers and the computed results.
type Reporter interface {
	WindowStarted()
	WindowEnded()
	Report(results []domain.UtilizationResult) error
}

// Meter is single use: one BeginWindow, one EndWindow, then any number of
// Compute or PrintResults calls.
type Meter struct {
	source   system.TickSource
	reporter Reporter
	log      logger.Logger

	grid  *Grid
	state WindowState

	beganAt time.Time
	endedAt time.Time
	now     func() time.Time
}

// New queries the processor count once; it stays fixed for the Meter's lifetime.
func New(ctx context.Context, counter system.ProcessorCounter, source system.TickSource, reporter Reporter, log logger.Logger) (*Meter, error) {
	n, err := counter.Count(ctx)
	if err != nil {
		return nil, err
	}

	grid, err := NewGrid(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNoProcessors, err)
	}

	log.Debug("meter created", "processors", n, "tick_source", source.Name())

	return &Meter{
		source:   source,
		reporter: reporter,
		log:      log,
		grid:     grid,
		state:    Created,
		now:      time.Now,
	}, nil
}

func (m *Meter) State() WindowState {
	return m.state
}

func (m *Meter) Processors() int {
	return m.grid.Processors()
}

// Window returns when the begin and end samples were taken.
func (m *Meter) Window() (began, ended time.Time) {
	return m.beganAt, m.endedAt
}

func (m *Meter) BeginWindow(ctx context.Context) error {
	if m.state != Created {
		return m.misuse("begin window")
	}

	m.reporter.WindowStarted()

	if err := m.gather(ctx, domain.SampleBegin); err != nil {
		return err
	}

	m.beganAt = m.now()
	m.state = WindowOpen
	return nil
}

func (m *Meter) EndWindow(ctx context.Context) error {
	if m.state != WindowOpen {
		return m.misuse("end window")
	}

	if err := m.gather(ctx, domain.SampleEnd); err != nil {
		return err
	}

	m.endedAt = m.now()
	m.state = WindowClosed

	m.reporter.WindowEnded()
	return nil
}

// Compute returns one result per processor in index order.
func (m *Meter) Compute() ([]domain.UtilizationResult, error) {
	if m.state != WindowClosed && m.state != Reported {
		return nil, m.misuse("compute")
	}
	if !m.grid.Filled(domain.SampleBegin) || !m.grid.Filled(domain.SampleEnd) {
		return nil, fmt.Errorf("%w: compute before both samples were stored", domain.ErrInvalidWindowState)
	}

	results := make([]domain.UtilizationResult, m.grid.Processors())
	for p := range results {
		begin, err := m.grid.Ticks(domain.SampleBegin, p)
		if err != nil {
			return nil, err
		}
		end, err := m.grid.Ticks(domain.SampleEnd, p)
		if err != nil {
			return nil, err
		}

		results[p] = CalculateUtilization(p, begin, end)
		if results[p].Anomalous {
			m.log.Warn("tick counters went backwards or are inconsistent",
				"processor", p,
				"delta_total", results[p].DeltaTotal,
				"delta_idle", results[p].DeltaIdle,
			)
		}
	}

	m.state = Reported
	return results, nil
}

func (m *Meter) PrintResults() ([]domain.UtilizationResult, error) {
	results, err := m.Compute()
	if err != nil {
		return nil, err
	}

	if err := m.reporter.Report(results); err != nil {
		return results, fmt.Errorf("failed to report results: %w", err)
	}
	return results, nil
}

func (m *Meter) gather(ctx context.Context, sample domain.SampleIndex) error {
	snap, err := m.source.Sample(ctx)
	if err != nil {
		return err
	}

	if len(snap) > m.grid.Processors() {
		m.log.Debug("tick source reported extra processors, ignoring them",
			"reported", len(snap), "processors", m.grid.Processors())
	}

	if err := m.grid.Store(sample, snap); err != nil {
		return err
	}

	for p := 0; p < m.grid.Processors(); p++ {
		ticks, err := m.grid.Ticks(sample, p)
		if err != nil {
			return err
		}
		for _, st := range domain.CPUStates() {
			m.log.Debug("gather",
				"sample", sample.String(),
				"processor", p,
				"state", int(st),
				"state_name", st.String(),
				"value", ticks[st],
			)
		}
	}

	return nil
}

func (m *Meter) misuse(op string) error {
	return fmt.Errorf("%w: cannot %s in state %s", domain.ErrInvalidWindowState, op, m.state)
}
