package config

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/roach88/atemporal/internal/canon"
)

// The process-wide configuration is an immutable snapshot. Readers load it
// without locking; writers build a new snapshot under mu.
var (
	mu      sync.Mutex
	current atomic.Pointer[Config]
)

func init() {
	d := Default()
	current.Store(&d)
}

// Current returns the active configuration.
func Current() Config {
	return *current.Load()
}

// Set validates cfg and makes it the active configuration.
func Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	current.Store(&cfg)
	return nil
}

// SetDefaultTimeZone replaces only the default zone. An empty zone clears it.
func SetDefaultTimeZone(zone string) error {
	if zone != "" && !canon.ValidZone(zone) {
		return fmt.Errorf("config: unknown time zone %q", zone)
	}
	mu.Lock()
	defer mu.Unlock()
	next := *current.Load()
	next.DefaultTimeZone = zone
	current.Store(&next)
	return nil
}

// DefaultTimeZone returns the configured default zone, or "" when unset.
func DefaultTimeZone() string {
	return current.Load().DefaultTimeZone
}

// Reset restores Default.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	d := Default()
	current.Store(&d)
}
