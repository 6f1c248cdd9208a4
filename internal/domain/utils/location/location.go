package location

import (
	"sync/atomic"
	"time"
)

var current atomic.Pointer[time.Location]

// Set loads the named IANA zone ("Africa/Kampala") and makes it the
// location used for parsing source dates and rendering alerts.
func Set(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	current.Store(loc)
	return nil
}

// Location returns the configured location, UTC until Set succeeds.
func Location() *time.Location {
	if loc := current.Load(); loc != nil {
		return loc
	}
	return time.UTC
}
