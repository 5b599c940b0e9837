package meter

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coremeter/internal/config"
	"coremeter/internal/domain"
	"coremeter/internal/logger"
)

type fixedCounter struct {
	n   int
	err error
}

func (f fixedCounter) Count(context.Context) (int, error) {
	return f.n, f.err
}

// scriptedSource hands out one queued snapshot (or error) per call.
type scriptedSource struct {
	snaps []domain.Snapshot
	errs  []error
	calls int
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Sample(context.Context) (domain.Snapshot, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.snaps[i], nil
}

type recordingReporter struct {
	events  []string
	results []domain.UtilizationResult
	err     error
}

func (r *recordingReporter) WindowStarted() { r.events = append(r.events, "start") }
func (r *recordingReporter) WindowEnded()   { r.events = append(r.events, "end") }

func (r *recordingReporter) Report(results []domain.UtilizationResult) error {
	r.events = append(r.events, "report")
	r.results = results
	return r.err
}

func newTestMeter(t *testing.T, n int, src *scriptedSource) (*Meter, *recordingReporter) {
	t.Helper()
	rep := &recordingReporter{}
	m, err := New(context.Background(), fixedCounter{n: n}, src, rep, logger.Discard())
	require.NoError(t, err)
	return m, rep
}

func runWindow(t *testing.T, begin, end domain.Snapshot) []domain.UtilizationResult {
	t.Helper()
	m, _ := newTestMeter(t, len(begin), &scriptedSource{snaps: []domain.Snapshot{begin, end}})

	ctx := context.Background()
	require.NoError(t, m.BeginWindow(ctx))
	require.NoError(t, m.EndWindow(ctx))

	results, err := m.Compute()
	require.NoError(t, err)
	require.Len(t, results, len(begin))
	return results
}

func TestMeter_ScenarioA_HalfBusy(t *testing.T) {
	results := runWindow(t,
		domain.Snapshot{{100, 50, 850, 0}},
		domain.Snapshot{{150, 50, 900, 0}},
	)

	assert.EqualValues(t, 100, results[0].DeltaTotal)
	assert.EqualValues(t, 50, results[0].DeltaIdle)
	assert.Equal(t, 50.0, results[0].Percent)
	assert.False(t, results[0].Anomalous)
}

func TestMeter_ScenarioB_NoElapsedTicks(t *testing.T) {
	snap := domain.Snapshot{{10, 20, 30, 40}}
	results := runWindow(t, snap, snap)

	assert.Zero(t, results[0].DeltaTotal)
	assert.Equal(t, 0.0, results[0].Percent)
}

func TestMeter_ScenarioC_FullyBusy(t *testing.T) {
	results := runWindow(t,
		domain.Snapshot{{0, 0, 1000, 0}},
		domain.Snapshot{{0, 100, 1000, 0}},
	)

	assert.EqualValues(t, 100, results[0].DeltaTotal)
	assert.Zero(t, results[0].DeltaIdle)
	assert.Equal(t, 100.0, results[0].Percent)
}

func TestMeter_ResultsInProcessorOrder(t *testing.T) {
	results := runWindow(t,
		domain.Snapshot{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
		domain.Snapshot{{25, 0, 75, 0}, {0, 0, 0, 0}, {10, 10, 10, 10}},
	)

	for i, r := range results {
		assert.Equal(t, i, r.Processor)
	}
	assert.Equal(t, 25.0, results[0].Percent)
	assert.Equal(t, 0.0, results[1].Percent)
	assert.Equal(t, 75.0, results[2].Percent)
}

func TestMeter_DeltaTotalSumsAllStates(t *testing.T) {
	begin := domain.Snapshot{{3, 5, 7, 11}, {100, 200, 300, 400}}
	end := domain.Snapshot{{13, 25, 37, 41}, {101, 202, 303, 404}}
	results := runWindow(t, begin, end)

	for p := range begin {
		want := int64(end[p].Total()) - int64(begin[p].Total())
		assert.Equal(t, want, results[p].DeltaTotal)
	}
}

func TestMeter_ExtraProcessorsIgnored(t *testing.T) {
	src := &scriptedSource{snaps: []domain.Snapshot{
		{{0, 0, 0, 0}, {9, 9, 9, 9}},
		{{50, 0, 50, 0}, {99, 99, 99, 99}},
	}}
	m, _ := newTestMeter(t, 1, src)

	require.NoError(t, m.BeginWindow(context.Background()))
	require.NoError(t, m.EndWindow(context.Background()))

	results, err := m.Compute()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 50.0, results[0].Percent)
}

func TestMeter_IncompleteSnapshotFails(t *testing.T) {
	src := &scriptedSource{snaps: []domain.Snapshot{{{1, 1, 1, 1}}}}
	m, _ := newTestMeter(t, 2, src)

	err := m.BeginWindow(context.Background())
	require.ErrorIs(t, err, domain.ErrAccountingUnavailable)
	assert.Equal(t, Created, m.State())
}

func TestMeter_SourceFailureIsFatalToWindow(t *testing.T) {
	boom := errors.New("kernel said no")
	src := &scriptedSource{
		snaps: []domain.Snapshot{{{1, 1, 1, 1}}, nil},
		errs:  []error{nil, errors.Join(domain.ErrAccountingUnavailable, boom)},
	}
	m, rep := newTestMeter(t, 1, src)

	require.NoError(t, m.BeginWindow(context.Background()))
	err := m.EndWindow(context.Background())
	require.ErrorIs(t, err, domain.ErrAccountingUnavailable)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, WindowOpen, m.State())
	assert.Equal(t, []string{"start"}, rep.events)

	_, err = m.Compute()
	require.ErrorIs(t, err, domain.ErrInvalidWindowState)
}

func TestMeter_StateMachine(t *testing.T) {
	ctx := context.Background()
	snap := domain.Snapshot{{1, 1, 1, 1}}
	m, rep := newTestMeter(t, 1, &scriptedSource{snaps: []domain.Snapshot{snap, snap}})

	assert.Equal(t, Created, m.State())
	require.ErrorIs(t, m.EndWindow(ctx), domain.ErrInvalidWindowState)
	_, err := m.Compute()
	require.ErrorIs(t, err, domain.ErrInvalidWindowState)

	require.NoError(t, m.BeginWindow(ctx))
	assert.Equal(t, WindowOpen, m.State())
	require.ErrorIs(t, m.BeginWindow(ctx), domain.ErrInvalidWindowState)
	_, err = m.Compute()
	require.ErrorIs(t, err, domain.ErrInvalidWindowState)

	require.NoError(t, m.EndWindow(ctx))
	assert.Equal(t, WindowClosed, m.State())
	require.ErrorIs(t, m.EndWindow(ctx), domain.ErrInvalidWindowState)
	require.ErrorIs(t, m.BeginWindow(ctx), domain.ErrInvalidWindowState)

	_, err = m.PrintResults()
	require.NoError(t, err)
	assert.Equal(t, Reported, m.State())

	_, err = m.PrintResults()
	require.NoError(t, err)
	assert.Equal(t, Reported, m.State())

	assert.Equal(t, []string{"start", "end", "report", "report"}, rep.events)
}

func TestMeter_PrintResultsPropagatesReporterError(t *testing.T) {
	ctx := context.Background()
	snap := domain.Snapshot{{1, 1, 1, 1}}
	m, rep := newTestMeter(t, 1, &scriptedSource{snaps: []domain.Snapshot{snap, snap}})
	rep.err = errors.New("stdout closed")

	require.NoError(t, m.BeginWindow(ctx))
	require.NoError(t, m.EndWindow(ctx))

	results, err := m.PrintResults()
	require.Error(t, err)
	assert.Len(t, results, 1)
}

func TestMeter_WindowTimestamps(t *testing.T) {
	ctx := context.Background()
	snap := domain.Snapshot{{1, 1, 1, 1}}
	m, _ := newTestMeter(t, 1, &scriptedSource{snaps: []domain.Snapshot{snap, snap}})

	require.NoError(t, m.BeginWindow(ctx))
	require.NoError(t, m.EndWindow(ctx))

	began, ended := m.Window()
	assert.False(t, began.IsZero())
	assert.False(t, ended.Before(began))
}

func TestNew_ProcessorCountErrors(t *testing.T) {
	_, err := New(context.Background(), fixedCounter{err: domain.ErrNoProcessors}, &scriptedSource{}, &recordingReporter{}, logger.Discard())
	require.ErrorIs(t, err, domain.ErrNoProcessors)

	_, err = New(context.Background(), fixedCounter{n: 0}, &scriptedSource{}, &recordingReporter{}, logger.Discard())
	require.ErrorIs(t, err, domain.ErrNoProcessors)
}

func TestNew_GridMatchesProcessorCount(t *testing.T) {
	m, _ := newTestMeter(t, 6, &scriptedSource{})
	assert.Equal(t, 6, m.Processors())
	assert.Equal(t, 6, m.grid.Processors())
}

func TestMeter_ComputeRequiresBothSamples(t *testing.T) {
	snap := domain.Snapshot{{1, 1, 1, 1}}
	m, _ := newTestMeter(t, 1, &scriptedSource{snaps: []domain.Snapshot{snap}})

	require.NoError(t, m.BeginWindow(context.Background()))
	m.state = WindowClosed

	_, err := m.Compute()
	require.ErrorIs(t, err, domain.ErrInvalidWindowState)
	assert.Equal(t, WindowClosed, m.State())
}

func TestMeter_GatherLogsEveryCell(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.Config{LogLevel: "debug", LogFormat: "text"}, &buf)

	src := &scriptedSource{snaps: []domain.Snapshot{{{11, 22, 33, 44}}}}
	m, err := New(context.Background(), fixedCounter{n: 1}, src, &recordingReporter{}, log)
	require.NoError(t, err)
	require.NoError(t, m.BeginWindow(context.Background()))

	out := buf.String()
	for _, want := range []string{
		"state_name=USER value=11",
		"state_name=SYSTEM value=22",
		"state_name=IDLE value=33",
		"state_name=NICE value=44",
	} {
		assert.Contains(t, out, want)
	}
}
