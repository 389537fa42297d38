package syncer

import "time"

// SetClock replaces the timestamp source used for pushes.
func (r *Reconciler[T]) SetClock(now func() time.Time) {
	r.now = now
}
