package upload

import "sync"

// Ledger tracks cumulative temporary-storage usage on the processing volume
// across concurrent requests. Space is reserved at admission time and
// settled to the actual byte count on commit, so two concurrent uploads can
// never both pass a quota check that only one of them can satisfy.
type Ledger struct {
	mu       sync.Mutex
	used     int64
	reserved int64
	quota    int64
}

func NewLedger(quotaBytes int64) *Ledger {
	return &Ledger{quota: quotaBytes}
}

// Reserve admits estimate bytes against the quota. Returns false when the
// projected usage would exceed the quota.
func (l *Ledger) Reserve(estimate int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.used+l.reserved+estimate > l.quota {
		return false
	}
	l.reserved += estimate
	return true
}

// Cancel returns a reservation that never became a committed asset.
func (l *Ledger) Cancel(estimate int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reserved -= estimate
}

// Commit settles a reservation to the actual number of bytes written.
func (l *Ledger) Commit(estimate, actual int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reserved -= estimate
	l.used += actual
}

// Release subtracts the bytes of a deleted temp asset.
func (l *Ledger) Release(actual int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.used -= actual
}

// Used reports the committed bytes currently on the volume.
func (l *Ledger) Used() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}
