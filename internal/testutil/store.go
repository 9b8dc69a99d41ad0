package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/harlequingg/project-tracker/internal/store"
)

// NewTestStore creates an in-memory SQLite store with all migrations
// applied. It automatically closes the store when the test completes.
func NewTestStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()

	s, err := store.Open(store.DBConfig{Driver: store.DriverSQLite, DSN: ":memory:"}, opts...)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Clock is a manually advanced time source. Each call to Now moves it
// forward by Step, so consecutive records get distinct timestamps.
type Clock struct {
	mu   sync.Mutex
	t    time.Time
	Step time.Duration
}

// NewClock returns a Clock starting at start that advances one second
// per read.
func NewClock(start time.Time) *Clock {
	return &Clock{t: start, Step: time.Second}
}

// Now returns the current time and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.Step)
	return now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
