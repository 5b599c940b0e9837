// Package system reads per-processor CPU accounting from the operating system.
package system

import (
	"context"
	"fmt"
	"runtime"

	"coremeter/internal/config"
	"coremeter/internal/domain"
	"coremeter/internal/logger"
)

// TickSource returns the cumulative tick counters of every online processor.
// A sample is all-or-nothing: on failure the error wraps domain.ErrAccountingUnavailable.
type TickSource interface {
	Sample(ctx context.Context) (domain.Snapshot, error)
	Name() string
}

type ProcessorCounter interface {
	Count(ctx context.Context) (int, error)
}

func NewTickSource(kind string, log logger.Logger) (TickSource, error) {
	if kind == config.TickSourceAuto {
		kind = config.TickSourcePsutil
		if runtime.GOOS == "linux" {
			kind = config.TickSourceProcfs
		}
	}

	switch kind {
	case config.TickSourceProcfs:
		return NewProcStat(log), nil
	case config.TickSourcePsutil:
		return NewPsutilTimes(log), nil
	default:
		return nil, fmt.Errorf("unknown tick source %q", kind)
	}
}
