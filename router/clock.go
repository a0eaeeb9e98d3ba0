package router

import (
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// defaultClock supplies the current time to every staleness and exclusion
// computation, swappable via SetClock for deterministic tests. Grounded on
// the lnd-wide convention of injecting clock.Clock rather than calling
// time.Now directly.
var defaultClock clock.Clock = clock.NewDefaultClock()

// SetClock overrides the clock used by staleness and exclusion checks.
// Intended for tests only.
func SetClock(c clock.Clock) {
	defaultClock = c
}

func nowFunc() time.Time {
	return defaultClock.Now()
}
