package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountingUnavailable = errors.New("cpu accounting unavailable")
	ErrNoProcessors          = errors.New("unable to determine processor count")
	ErrInvalidWindowState    = errors.New("invalid window state")
	ErrOutOfRange            = errors.New("index out of range")
)

// TickCount is a cumulative, OS-maintained count of ticks spent in one state.
type TickCount = uint64

type CPUState int

const (
	StateUser CPUState = iota
	StateSystem
	StateIdle
	StateNice

	NumStates = 4
)

var cpuStateNames = [NumStates]string{"USER", "SYSTEM", "IDLE", "NICE"}

func (s CPUState) String() string {
	if s < 0 || int(s) >= NumStates {
		return fmt.Sprintf("CPUState(%d)", int(s))
	}
	return cpuStateNames[s]
}

func (s CPUState) Valid() bool {
	return s >= 0 && int(s) < NumStates
}

// CPUStates lists every accounting bucket in index order.
func CPUStates() []CPUState {
	return []CPUState{StateUser, StateSystem, StateIdle, StateNice}
}

type SampleIndex int

const (
	SampleBegin SampleIndex = iota
	SampleEnd

	NumSamples = 2
)

func (i SampleIndex) String() string {
	switch i {
	case SampleBegin:
		return "begin"
	case SampleEnd:
		return "end"
	default:
		return fmt.Sprintf("SampleIndex(%d)", int(i))
	}
}

func (i SampleIndex) Valid() bool {
	return i == SampleBegin || i == SampleEnd
}

// CPUTicks holds the counters of a single processor, indexed by CPUState.
type CPUTicks [NumStates]TickCount

func (t CPUTicks) Total() TickCount {
	var total TickCount
	for _, v := range t {
		total += v
	}
	return total
}

func (t CPUTicks) Idle() TickCount {
	return t[StateIdle]
}

// Snapshot is one reading of every online processor, ordered by processor index.
type Snapshot []CPUTicks

type UtilizationResult struct {
	Processor  int     `json:"processor"`
	DeltaTotal int64   `json:"delta_total"`
	DeltaIdle  int64   `json:"delta_idle"`
	Percent    float64 `json:"utilization_percent"`
	Anomalous  bool    `json:"anomalous"`
}
