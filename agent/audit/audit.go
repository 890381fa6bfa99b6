package audit

import (
	"context"
	"strings"
	"time"
)

// Turn is one completed request as seen by the coordinator.
type Turn struct {
	SessionID  string
	CustomerID string
	Query      string
	RoutedTo   string
	Response   string
	At         time.Time
}

// Recorder persists turns for routing analytics. Callers log Record errors
// and carry on; a turn never fails because of its audit record.
type Recorder interface {
	Record(ctx context.Context, turn Turn) error
}

type Config struct {
	Table string        `envconfig:"TABLE" split_words:"true"`
	TTL   time.Duration `envconfig:"TTL" split_words:"true" default:"720h"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Table) != ""
}

// Noop discards every turn.
type Noop struct{}

func (Noop) Record(context.Context, Turn) error { return nil }
