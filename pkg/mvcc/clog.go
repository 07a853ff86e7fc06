package mvcc

import (
	"sort"
	"sync"
	"time"

	"github.com/kasuganosora/kuzugraph/pkg/utils"
)

// entry is one XID's recorded terminal (or in-progress) status, timestamped
// so GC can prune by age as well as by count.
type entry struct {
	status     TransactionStatus
	recordedAt time.Time
}

// CommitLog is the transaction commit log, tracking each XID's terminal
// status (in progress/committed/aborted), PostgreSQL clog-style. Used by the
// Transaction Coordinator as its bounded in-memory history of past
// transaction outcomes, pruned per pkg/config.MVCCConfig's GCAgeThreshold
// and MaxActiveTxns knobs.
type CommitLog struct {
	entries map[XID]entry
	oldest  XID
	clock   utils.TimeProvider
	mu      sync.RWMutex
}

// NewCommitLog creates an empty commit log that timestamps entries using
// clock. A nil clock defaults to utils.NewSystemTimeProvider(), so tests can
// pass a utils.FixedTimeProvider/MockTimeProvider to control GC's age-based
// pruning deterministically.
func NewCommitLog(clock utils.TimeProvider) *CommitLog {
	if clock == nil {
		clock = utils.NewSystemTimeProvider()
	}
	return &CommitLog{
		entries: make(map[XID]entry),
		oldest:  XIDBootstrap,
		clock:   clock,
	}
}

// SetStatus records xid's terminal status.
func (l *CommitLog) SetStatus(xid XID, status TransactionStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[xid] = entry{status: status, recordedAt: l.clock.Now()}

	if len(l.entries) == 1 || xid < l.oldest {
		l.oldest = xid
	}
}

// GetStatus returns xid's recorded status, if any.
func (l *CommitLog) GetStatus(xid XID) (TransactionStatus, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, exists := l.entries[xid]
	return e.status, exists
}

// IsCommitted reports whether xid is recorded as committed.
func (l *CommitLog) IsCommitted(xid XID) bool {
	status, exists := l.GetStatus(xid)
	return exists && status == TxnStatusCommitted
}

// IsAborted reports whether xid is recorded as aborted.
func (l *CommitLog) IsAborted(xid XID) bool {
	status, exists := l.GetStatus(xid)
	return exists && status == TxnStatusAborted
}

// IsInProgress reports whether xid has no terminal status recorded yet.
func (l *CommitLog) IsInProgress(xid XID) bool {
	status, exists := l.GetStatus(xid)
	return !exists || status == TxnStatusInProgress
}

// GetOldestXID returns the oldest XID with an entry in the log.
func (l *CommitLog) GetOldestXID() XID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.oldest
}

// GetEntryCount returns the number of entries currently held.
func (l *CommitLog) GetEntryCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// GC drops entries older than maxAge, then, if more than maxEntries still
// remain, drops the oldest-by-XID until only maxEntries are left. Either
// bound may be zero/negative to disable it.
func (l *CommitLog) GC(maxAge time.Duration, maxEntries int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if maxAge > 0 {
		now := l.clock.Now()
		for xid, e := range l.entries {
			if now.Sub(e.recordedAt) > maxAge {
				delete(l.entries, xid)
			}
		}
	}

	if maxEntries > 0 && len(l.entries) > maxEntries {
		xids := make([]XID, 0, len(l.entries))
		for xid := range l.entries {
			xids = append(xids, xid)
		}
		sort.Slice(xids, func(i, j int) bool { return xids[i] < xids[j] })

		excess := len(xids) - maxEntries
		for _, xid := range xids[:excess] {
			delete(l.entries, xid)
		}
	}

	l.updateOldest()
}

// updateOldest recomputes oldest from the remaining entries. Must be called
// with mu held.
func (l *CommitLog) updateOldest() {
	if len(l.entries) == 0 {
		l.oldest = XIDBootstrap
		return
	}

	oldest := XID(XIDMax)
	for xid := range l.entries {
		if xid < oldest {
			oldest = xid
		}
	}
	l.oldest = oldest
}
