package jobs

import (
	"context"
	"time"

	"github.com/swfung/dualcannon/internal/session"
)

// SessionTick drives the pipeline once per minute through the
// continuous session, weekdays only. The driver itself decides what
// each tick does.
type SessionTick struct {
	driver *session.Driver
}

// NewSessionTick creates the minute tick job.
func NewSessionTick(driver *session.Driver) *SessionTick {
	return &SessionTick{driver: driver}
}

func (j *SessionTick) Name() string { return "session_tick" }

// Schedule fires on the minute from 09:00 to 15:59 so the rollover
// also runs before the open.
func (j *SessionTick) Schedule() string { return "0 * 9-15 * * 1-5" }

func (j *SessionTick) Run(ctx context.Context) error {
	j.driver.Tick(ctx, time.Now())
	return nil
}
