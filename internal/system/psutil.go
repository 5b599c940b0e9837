package system

import (
	"context"
	"fmt"
	"math"

	"github.com/shirou/gopsutil/v4/cpu"

	"coremeter/internal/domain"
	"coremeter/internal/logger"
)

// ticksPerSecond converts gopsutil's seconds back into USER_HZ ticks.
const ticksPerSecond = 100

// PsutilTimes samples per-cpu times through gopsutil, which covers the
// platforms /proc/stat does not (host_processor_info on darwin).
type PsutilTimes struct {
	times func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)
	log   logger.Logger
}

func NewPsutilTimes(log logger.Logger) *PsutilTimes {
	return &PsutilTimes{
		times: cpu.TimesWithContext,
		log:   log,
	}
}

func (p *PsutilTimes) Name() string {
	return "psutil"
}

func (p *PsutilTimes) Sample(ctx context.Context) (domain.Snapshot, error) {
	stats, err := p.times(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAccountingUnavailable, err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: no per-cpu times reported", domain.ErrAccountingUnavailable)
	}

	snap := make(domain.Snapshot, len(stats))
	for i, s := range stats {
		snap[i] = timesToTicks(s)
	}

	p.log.Trace("sampled cpu times", "processors", len(snap))
	return snap, nil
}

func timesToTicks(s cpu.TimesStat) domain.CPUTicks {
	var t domain.CPUTicks
	t[domain.StateUser] = secondsToTicks(s.User)
	t[domain.StateNice] = secondsToTicks(s.Nice)
	t[domain.StateSystem] = secondsToTicks(s.System + s.Irq + s.Softirq + s.Steal)
	t[domain.StateIdle] = secondsToTicks(s.Idle + s.Iowait)
	return t
}

func secondsToTicks(sec float64) domain.TickCount {
	if sec <= 0 || math.IsNaN(sec) {
		return 0
	}
	return domain.TickCount(math.Round(sec * ticksPerSecond))
}
