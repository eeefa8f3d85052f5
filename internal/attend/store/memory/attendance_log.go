package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Lumnic12/attend/internal/attend/store"
)

// AttendanceLog is an in-memory append-only attendance log.
// It is intended for use in tests and dev environments.
type AttendanceLog struct {
	mu      sync.Mutex
	records []store.AttendanceRecord
	failErr error
}

func NewAttendanceLog() *AttendanceLog {
	return &AttendanceLog{}
}

func (l *AttendanceLog) Append(_ context.Context, rec store.AttendanceRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failErr != nil {
		return l.failErr
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	l.records = append(l.records, rec)
	return nil
}

// FailWith makes subsequent Appends return err (nil restores normal
// behaviour). Test-only helper.
func (l *AttendanceLog) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failErr = err
}

// Recent returns up to limit records, newest first.
func (l *AttendanceLog) Recent(_ context.Context, limit int) ([]store.AttendanceRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}
	out := make([]store.AttendanceRecord, 0, limit)
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.records[i])
	}
	return out, nil
}

// PruneOlderThan drops records with a timestamp before cutoff.
func (l *AttendanceLog) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.records[:0]
	for _, rec := range l.records {
		if !rec.Timestamp.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	deleted := int64(len(l.records) - len(kept))
	clear(l.records[len(kept):])
	l.records = kept
	return deleted, nil
}

// Records returns a copy of all recorded rows.  Test-only helper.
func (l *AttendanceLog) Records() []store.AttendanceRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]store.AttendanceRecord, len(l.records))
	copy(out, l.records)
	return out
}
