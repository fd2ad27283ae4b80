package checkin

import "time"

// Clock supplies the current time.  Sessions take one so the scan cool-down
// and reference timestamps can be driven by a fake in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the server's local zone.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
