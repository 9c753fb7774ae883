package batch

import (
	"github.com/robfig/cron/v3"

	perrors "github.com/gnrllybttr/pacer/pkg/common/errors"
)

// Flusher is the part of a batcher a schedule drives. Both Batcher and
// AsyncBatcher satisfy it.
type Flusher interface {
	Flush()
}

// Schedule flushes a batcher on a cron schedule, complementing the size
// and timeout triggers for workloads drained on wall-clock boundaries
// (end-of-minute rollups, nightly exports).
//
// Expressions use the six-field format with a leading seconds column:
//
//	"*/10 * * * * *"  - every 10 seconds
//	"0 * * * * *"     - at the top of every minute
//	"0 0 2 * * *"     - daily at 02:00
type Schedule struct {
	c *cron.Cron
}

// NewSchedule creates a stopped Schedule flushing f per the cron
// expression. Call Start to begin.
func NewSchedule(expr string, f Flusher) (*Schedule, error) {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(expr, f.Flush); err != nil {
		return nil, perrors.NewValidationError(module, "schedule", expr, err.Error()).
			WithHint("expressions use six fields, seconds first")
	}
	return &Schedule{c: c}, nil
}

// Start begins flushing on schedule.
func (s *Schedule) Start() {
	s.c.Start()
}

// Stop ends scheduled flushing. A flush already running completes.
func (s *Schedule) Stop() {
	s.c.Stop()
}
