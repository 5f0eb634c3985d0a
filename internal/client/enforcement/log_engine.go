package enforcement

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophfocus/internal/logging"
)

// LogEngine is an Engine that only records and logs what it would enforce.
// The CLI uses it on hosts without a restriction backend.
type LogEngine struct {
	mu      sync.Mutex
	log     logging.Logger
	current *Snapshot
}

func NewLogEngine(log logging.Logger) *LogEngine {
	return &LogEngine{log: logging.OrNop(log).With("module", "engine")}
}

func (e *LogEngine) Activate(ctx context.Context, s Snapshot) error {
	e.mu.Lock()
	e.current = &s
	e.mu.Unlock()
	e.log.Info(ctx, "blocking", "profile", s.Name, "apps", s.Apps, "domains", s.Domains)
	return nil
}

func (e *LogEngine) Deactivate(ctx context.Context) error {
	e.mu.Lock()
	e.current = nil
	e.mu.Unlock()
	e.log.Info(ctx, "unblocked")
	return nil
}

// Current returns what is being enforced, if anything.
func (e *LogEngine) Current() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return Snapshot{}, false
	}
	return *e.current, true
}
