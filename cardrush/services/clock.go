package services

import "time"

// Clock supplies the current time. Injected everywhere the claim pipeline or
// the sweeper compares against wall time, so tests can drive it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }
