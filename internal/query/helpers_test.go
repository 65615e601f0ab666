package query

import (
	"sync"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// statusError mimics a transport error carrying an HTTP status.
type statusError struct {
	code int
}

func (e statusError) Error() string       { return "backend failure" }
func (e statusError) HTTPStatus() int     { return e.code }
func (e statusError) StatusText() string  { return "failure" }
func (e statusError) ErrorList() []string { return []string{"backend failure"} }
