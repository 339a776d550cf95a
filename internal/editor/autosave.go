package editor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Autosaver periodically saves dirty sessions.
type Autosaver struct {
	cron     *cron.Cron
	registry *Registry
	interval time.Duration
}

// NewAutosaver schedules SaveDirty on registry every interval.
func NewAutosaver(registry *Registry, interval time.Duration) (*Autosaver, error) {
	if interval < time.Second {
		return nil, fmt.Errorf("autosave interval must be at least 1s, got %s", interval)
	}
	a := &Autosaver{
		cron:     cron.New(),
		registry: registry,
		interval: interval,
	}
	if _, err := a.cron.AddFunc(fmt.Sprintf("@every %s", interval), a.run); err != nil {
		return nil, fmt.Errorf("failed to schedule autosave: %w", err)
	}
	return a, nil
}

// Start runs the schedule in the background.
func (a *Autosaver) Start() {
	a.cron.Start()
	log.Printf("[autosave] Saving dirty sessions every %s", a.interval)
}

// Stop halts the schedule and waits for a running save to finish or ctx to
// expire.
func (a *Autosaver) Stop(ctx context.Context) {
	done := a.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (a *Autosaver) run() {
	if n := a.registry.SaveDirty(context.Background()); n > 0 {
		log.Printf("[autosave] Saved %d session(s)", n)
	}
}
