package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrRunNotFound = errors.New("run not found")

// Run is a completed measurement window as kept by the result journal.
type Run struct {
	ID             uuid.UUID           `json:"id"`
	StartedAt      time.Time           `json:"started_at"`
	EndedAt        time.Time           `json:"ended_at"`
	Window         time.Duration       `json:"window"`
	ProcessorCount int                 `json:"processor_count"`
	TickSource     string              `json:"tick_source"`
	Results        []UtilizationResult `json:"results"`
}

type RunRepository interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
}
