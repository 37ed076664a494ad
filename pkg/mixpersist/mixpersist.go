// Package mixpersist writes the control snapshot to durable storage only
// when it changed since the last successful write.
package mixpersist

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixmetrics"
	"github.com/txn2/pimixer/pkg/mixstate"
)

// DefaultPeriod is the debounce interval
const DefaultPeriod = time.Second

// Store is the durable side of the debouncer
type Store interface {
	Save(snap mixstate.Snapshot) error
}

// StoreFunc adapts a function to Store
type StoreFunc func(snap mixstate.Snapshot) error

// Save calls f(snap)
func (f StoreFunc) Save(snap mixstate.Snapshot) error {
	return f(snap)
}

// Debouncer suppresses redundant writes
type Debouncer struct {
	store  Store
	last   mixstate.Snapshot
	writes int
}

// New creates a Debouncer that treats initial as already written, so an
// unchanged boot causes no I/O
func New(store Store, initial mixstate.Snapshot) *Debouncer {
	return &Debouncer{store: store, last: initial}
}

// Tick saves snap if it differs from the last written snapshot. The cache
// only moves forward on success, so a failed write is retried next tick.
func (d *Debouncer) Tick(snap mixstate.Snapshot) (bool, error) {
	if snap == d.last {
		return false, nil
	}
	if err := d.store.Save(snap); err != nil {
		mixmetrics.ConfigWriteErrors.Inc()
		return false, errors.Wrapf(err, "persist %s", snap)
	}
	d.last = snap
	d.writes++
	mixmetrics.ConfigWrites.Inc()
	log.Debugf("Persisted %s", snap)
	return true, nil
}

// Flush is the final write at shutdown; it applies the same change test
func (d *Debouncer) Flush(snap mixstate.Snapshot) (bool, error) {
	return d.Tick(snap)
}

// Last returns the last snapshot known to be on disk
func (d *Debouncer) Last() mixstate.Snapshot {
	return d.last
}

// Writes returns the number of successful writes
func (d *Debouncer) Writes() int {
	return d.writes
}
