// Package local persists per-step simulation statistics on disk.
package local

import (
	"errors"

	"github.com/tslnc04/agent-sim/internal/world"
)

// ErrNotFound is returned when no statistics are stored for a step.
var ErrNotFound = errors.New("stats not found")

// StatsStore is an ordered store of step statistics keyed by step number.
type StatsStore interface {
	// Init opens/creates the underlying store.
	Init() error
	// Close flushes and closes the store.
	Close() error
	// Put stores the statistics of one step, replacing any earlier record
	// for the same step.
	Put(s world.Stats) error
	// Get returns the statistics of a step, or ErrNotFound.
	Get(step int) (world.Stats, error)
	// Range returns the records with from <= step <= to in step order.
	Range(from, to int) ([]world.Stats, error)
	// Latest returns the record with the highest step, or ErrNotFound.
	Latest() (world.Stats, error)
	// Truncate deletes every record.
	Truncate() error
}
