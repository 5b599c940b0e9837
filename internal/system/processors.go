package system

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/tklauser/numcpus"

	"coremeter/internal/domain"
	"coremeter/internal/logger"
)

// OnlineProcessors counts online logical processors.
type OnlineProcessors struct {
	online   func() (int, error)
	fallback func(ctx context.Context, logical bool) (int, error)
	log      logger.Logger
}

func NewOnlineProcessors(log logger.Logger) *OnlineProcessors {
	return &OnlineProcessors{
		online:   numcpus.GetOnline,
		fallback: cpu.CountsWithContext,
		log:      log,
	}
}

func (o *OnlineProcessors) Count(ctx context.Context) (int, error) {
	n, err := o.online()
	if err != nil || n <= 0 {
		o.log.Debug("online cpu count unavailable, falling back to gopsutil", "count", n, "error", err)

		n, err = o.fallback(ctx, true)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", domain.ErrNoProcessors, err)
		}
	}

	if n <= 0 {
		return 0, fmt.Errorf("%w: got %d", domain.ErrNoProcessors, n)
	}

	return n, nil
}
