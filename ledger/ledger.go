package ledger

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrConcurrentRun is returned when another run committed the same version
// first.
var ErrConcurrentRun = errors.New("ledger: concurrent run committed first")

// RunRecord is the outcome of one labeling round.
type RunRecord struct {
	// Job is the labeling job name prefix the round belongs to.
	Job string
	// Version is assigned by Append, starting at 1.
	Version uint64

	InputTotal    int
	AutoAnnotated int
	Selected      int

	AutoAnnotationsURI string
	SelectionsURI      string
	NextJobName        string
	NextJobOutputURI   string

	CreatedAt time.Time
}

// Ledger stores RunRecords.
type Ledger interface {
	// Append stores rec as the next version of its job and returns it with
	// the version set.
	Append(ctx context.Context, rec RunRecord) (RunRecord, error)
	// Latest returns the newest record of job. ok is false if the job has
	// no records.
	Latest(ctx context.Context, job string) (rec RunRecord, ok bool, err error)
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu   sync.RWMutex
	runs map[string][]RunRecord
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{runs: make(map[string][]RunRecord)}
}

// Append implements Ledger.
func (l *MemoryLedger) Append(_ context.Context, rec RunRecord) (RunRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.Version = uint64(len(l.runs[rec.Job])) + 1
	l.runs[rec.Job] = append(l.runs[rec.Job], rec)
	return rec, nil
}

// Latest implements Ledger.
func (l *MemoryLedger) Latest(_ context.Context, job string) (RunRecord, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	runs := l.runs[job]
	if len(runs) == 0 {
		return RunRecord{}, false, nil
	}
	return runs[len(runs)-1], true, nil
}

// History returns all records of job, oldest first.
func (l *MemoryLedger) History(job string) []RunRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]RunRecord(nil), l.runs[job]...)
}
