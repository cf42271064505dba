// Package providers contains the default implementations of the collaborator
// interfaces the engine injects into operator calls. Each provider is
// replaceable: hosts embedding the engine can supply their own.
package providers

import (
	"os"
	"time"
)

// OSEnv reads the process environment.
type OSEnv struct{}

// Get implements registry.EnvProvider.
func (OSEnv) Get(name string) (string, bool) {
	return os.LookupEnv(name)
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements registry.Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}
