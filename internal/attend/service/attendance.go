package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Lumnic12/attend/internal/attend/clock"
	"github.com/Lumnic12/attend/internal/attend/store"
	"github.com/Lumnic12/attend/internal/attend/types"
)

const DefaultAttendanceDuration = 50 * time.Minute

// AttendanceTracker keeps one session per card for the lifetime of the
// process. The first sighting of a card opens a session and schedules a
// single deferred "Present" mark; later sightings change nothing.
//
// Pending marks live in a keyed timer table so they can be inspected and
// cancelled.
type AttendanceTracker struct {
	clock    clock.Clock
	sink     store.AttendanceSink
	duration time.Duration
	logger   *slog.Logger
	metrics  Metrics

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	stopped  bool
}

type sessionEntry struct {
	session types.AttendanceSession
	timer   clock.Timer
}

type AttendanceConfig struct {
	// Duration between the first scan and the Present mark. Defaults to
	// 50 minutes.
	Duration time.Duration
	Clock    clock.Clock
	Metrics  Metrics
}

func NewAttendanceTracker(sink store.AttendanceSink, cfg AttendanceConfig, logger *slog.Logger) *AttendanceTracker {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultAttendanceDuration
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AttendanceTracker{
		clock:    cfg.Clock,
		sink:     sink,
		duration: cfg.Duration,
		logger:   logger,
		metrics:  cfg.Metrics,
		sessions: make(map[string]*sessionEntry),
	}
}

// StartIfNew opens a session for cardID unless one already exists. It
// reports whether a session was created.
func (t *AttendanceTracker) StartIfNew(cardID, name string) bool {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return false
	}
	if _, ok := t.sessions[cardID]; ok {
		t.mu.Unlock()
		return false
	}
	entry := &sessionEntry{session: types.AttendanceSession{
		CardID:    cardID,
		Name:      name,
		EntryTime: t.clock.Now(),
	}}
	t.sessions[cardID] = entry
	t.mu.Unlock()

	// Scheduled outside the lock: a fake clock may run the callback
	// synchronously.
	timer := t.clock.AfterFunc(t.duration, func() {
		t.OnTimerFire(context.Background(), cardID)
	})

	t.mu.Lock()
	if cur, ok := t.sessions[cardID]; ok && cur == entry && !entry.session.Marked && !entry.session.Cancelled && !t.stopped {
		entry.timer = timer
	} else {
		timer.Stop()
	}
	t.mu.Unlock()

	t.metrics.SessionStarted()
	t.logger.Info("attendance session started", "card_id", cardID, "name", name, "mark_after", t.duration)
	return true
}

// OnTimerFire marks an active session present and writes one Present
// record. It is a no-op for marked or unknown sessions and reports
// whether it marked anything.
func (t *AttendanceTracker) OnTimerFire(ctx context.Context, cardID string) bool {
	t.mu.Lock()
	entry, ok := t.sessions[cardID]
	if !ok || entry.session.Marked || entry.session.Cancelled {
		t.mu.Unlock()
		return false
	}
	now := t.clock.Now()
	entry.session.Marked = true
	entry.session.MarkedAt = now
	entry.timer = nil
	session := entry.session
	t.mu.Unlock()

	t.metrics.SessionMarked()
	err := t.sink.Append(ctx, store.AttendanceRecord{
		Timestamp:  now,
		CardID:     session.CardID,
		Name:       session.Name,
		Status:     store.StatusAuthorized,
		Attendance: store.AttendancePresent,
	})
	if err != nil {
		t.metrics.SinkFailed()
		t.logger.Error("attendance mark not persisted", "card_id", cardID, "err", err)
	} else {
		t.logger.Info("attendance marked", "card_id", cardID, "name", session.Name, "status", store.AttendancePresent)
	}
	return true
}

// Cancel stops a pending mark. The session stays in the table as
// cancelled, so later scans of the card do not open a new one. Marked and
// already cancelled sessions are not cancelled.
func (t *AttendanceTracker) Cancel(cardID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.sessions[cardID]
	if !ok || entry.session.Marked || entry.session.Cancelled {
		return false
	}
	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
	entry.session.Cancelled = true
	return true
}

// Stop cancels every pending mark. Sessions stay readable.
func (t *AttendanceTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for _, e := range t.sessions {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
}

func (t *AttendanceTracker) Session(cardID string) (types.AttendanceSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.sessions[cardID]
	if !ok {
		return types.AttendanceSession{}, false
	}
	return e.session, true
}

// Sessions returns every tracked session ordered by entry time.
func (t *AttendanceTracker) Sessions() []types.AttendanceSession {
	t.mu.Lock()
	out := make([]types.AttendanceSession, 0, len(t.sessions))
	for _, e := range t.sessions {
		out = append(out, e.session)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].CardID < out[j].CardID
		}
		return out[i].EntryTime.Before(out[j].EntryTime)
	})
	return out
}

// Counts returns the number of active and marked sessions. Cancelled
// sessions are in neither.
func (t *AttendanceTracker) Counts() (active, marked int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.sessions {
		switch {
		case e.session.Marked:
			marked++
		case !e.session.Cancelled:
			active++
		}
	}
	return active, marked
}
