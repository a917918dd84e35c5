package store

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrStoreBusy is returned once bounded retries against a locked
	// database are exhausted. Non-fatal: the next sync catches up.
	ErrStoreBusy = errors.New("store busy")

	// ErrStoreCorrupt means quick_check failed on open. Fatal until the
	// store is reinitialized by replaying transcripts from zero.
	ErrStoreCorrupt = errors.New("store corrupt")

	// ErrCheckpointStale aborts a write whose batch was planned against
	// a checkpoint another process has since advanced.
	ErrCheckpointStale = errors.New("checkpoint stale")
)

const busyRetries = 5

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}

// withBusyRetry runs fn, retrying lock contention with exponential
// backoff on top of the busy_timeout pragma. Other errors pass through.
func withBusyRetry(fn func() error) error {
	delay := 50 * time.Millisecond
	var err error
	for i := 0; i < busyRetries; i++ {
		err = fn()
		if !isBusy(err) {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
	return errors.Join(ErrStoreBusy, err)
}
