package domain

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// clockHolder wraps the interface so it can live in an atomic.Pointer.
type clockHolder struct{ clockwork.Clock }

// resultClock stamps CalculatedAt. Requests are serialized concurrently, so
// the source is swapped atomically.
var resultClock atomic.Pointer[clockHolder]

func init() {
	resultClock.Store(&clockHolder{clockwork.NewRealClock()})
}

// SetClock replaces the time source used for result timestamps. nil restores
// the wall clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	resultClock.Store(&clockHolder{c})
}

func now() time.Time {
	return resultClock.Load().Now().UTC()
}
