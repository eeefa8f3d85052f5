package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lumnic12/attend/internal/attend/clock"
	"github.com/Lumnic12/attend/internal/attend/service"
	"github.com/Lumnic12/attend/internal/attend/store"
	"github.com/Lumnic12/attend/internal/attend/store/memory"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestTracker() (*service.AttendanceTracker, *clock.FakeClock, *memory.AttendanceLog) {
	clk := clock.Fake(epoch)
	sink := memory.NewAttendanceLog()
	tr := service.NewAttendanceTracker(sink, service.AttendanceConfig{Clock: clk}, quietLogger())
	return tr, clk, sink
}

func TestAttendance_StartIfNewIsIdempotent(t *testing.T) {
	tr, clk, _ := newTestTracker()

	if !tr.StartIfNew("A1", "alice") {
		t.Fatal("expected first StartIfNew to create a session")
	}
	clk.Advance(time.Minute)
	if tr.StartIfNew("A1", "alice") {
		t.Error("expected second StartIfNew to be a no-op")
	}
	if n := clk.PendingTimers(); n != 1 {
		t.Errorf("expected 1 pending mark, got %d", n)
	}

	s, ok := tr.Session("A1")
	if !ok {
		t.Fatal("expected session for A1")
	}
	if !s.EntryTime.Equal(epoch) {
		t.Errorf("entry time moved: %v", s.EntryTime)
	}
	if s.Marked {
		t.Error("new session should not be marked")
	}
}

func TestAttendance_MarksPresentAfterDuration(t *testing.T) {
	tr, clk, sink := newTestTracker()
	tr.StartIfNew("A1", "alice")

	clk.Advance(service.DefaultAttendanceDuration - time.Second)
	if s, _ := tr.Session("A1"); s.Marked {
		t.Fatal("marked too early")
	}
	if len(sink.Records()) != 0 {
		t.Fatal("expected no records before the mark")
	}

	clk.Advance(time.Second)
	s, _ := tr.Session("A1")
	if !s.Marked {
		t.Fatal("expected session to be marked")
	}
	if want := epoch.Add(service.DefaultAttendanceDuration); !s.MarkedAt.Equal(want) {
		t.Errorf("expected marked at %v, got %v", want, s.MarkedAt)
	}

	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.Name != "alice" || r.CardID != "A1" || r.Status != store.StatusAuthorized || r.Attendance != store.AttendancePresent {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestAttendance_OnTimerFireIsIdempotent(t *testing.T) {
	tr, clk, sink := newTestTracker()
	tr.StartIfNew("A1", "alice")
	ctx := context.Background()

	if !tr.OnTimerFire(ctx, "A1") {
		t.Fatal("expected first fire to mark")
	}
	if tr.OnTimerFire(ctx, "A1") {
		t.Error("expected second fire to be a no-op")
	}
	// The scheduled timer fires too and must not write again.
	clk.Advance(service.DefaultAttendanceDuration)

	if n := len(sink.Records()); n != 1 {
		t.Errorf("expected exactly 1 Present record, got %d", n)
	}
	if tr.StartIfNew("A1", "alice") {
		t.Error("a marked card must not start a new session")
	}
}

func TestAttendance_OnTimerFireUnknownCard(t *testing.T) {
	tr, _, sink := newTestTracker()
	if tr.OnTimerFire(context.Background(), "nope") {
		t.Error("expected no-op for unknown card")
	}
	if len(sink.Records()) != 0 {
		t.Error("expected no records")
	}
}

func TestAttendance_CustomDuration(t *testing.T) {
	clk := clock.Fake(epoch)
	sink := memory.NewAttendanceLog()
	tr := service.NewAttendanceTracker(sink, service.AttendanceConfig{Clock: clk, Duration: 5 * time.Second}, quietLogger())

	tr.StartIfNew("A1", "alice")
	clk.Advance(5 * time.Second)
	if s, _ := tr.Session("A1"); !s.Marked {
		t.Error("expected mark after custom duration")
	}
}

func TestAttendance_Cancel(t *testing.T) {
	tr, clk, sink := newTestTracker()
	tr.StartIfNew("A1", "alice")

	if !tr.Cancel("A1") {
		t.Fatal("expected Cancel to succeed")
	}
	s, ok := tr.Session("A1")
	if !ok || !s.Cancelled || s.Marked {
		t.Errorf("expected a cancelled session to remain, got %+v ok=%v", s, ok)
	}
	clk.Advance(service.DefaultAttendanceDuration)
	if len(sink.Records()) != 0 {
		t.Error("cancelled mark must not be written")
	}
	if tr.Cancel("A1") {
		t.Error("expected second Cancel to fail")
	}
	if active, marked := tr.Counts(); active != 0 || marked != 0 {
		t.Errorf("expected cancelled session in neither count, got active=%d marked=%d", active, marked)
	}
	if tr.Cancel("ZZ") {
		t.Error("expected Cancel of unknown card to fail")
	}
}

func TestAttendance_CancelledCardIsNotReopened(t *testing.T) {
	tr, clk, sink := newTestTracker()
	tr.StartIfNew("A1", "alice")
	tr.Cancel("A1")

	if tr.StartIfNew("A1", "alice") {
		t.Error("expected StartIfNew to keep the cancelled session")
	}
	if n := clk.PendingTimers(); n != 0 {
		t.Errorf("expected no pending timers, got %d", n)
	}
	clk.Advance(2 * service.DefaultAttendanceDuration)
	if len(sink.Records()) != 0 {
		t.Errorf("expected no Present mark for a cancelled card, got %+v", sink.Records())
	}
	if tr.OnTimerFire(context.Background(), "A1") {
		t.Error("expected OnTimerFire to ignore a cancelled session")
	}
}

func TestAttendance_CancelMarkedSessionFails(t *testing.T) {
	tr, clk, _ := newTestTracker()
	tr.StartIfNew("A1", "alice")
	clk.Advance(service.DefaultAttendanceDuration)
	if tr.Cancel("A1") {
		t.Error("expected Cancel of a marked session to fail")
	}
}

func TestAttendance_StopCancelsPendingMarks(t *testing.T) {
	tr, clk, sink := newTestTracker()
	tr.StartIfNew("A1", "alice")
	tr.StartIfNew("B2", "bob")

	tr.Stop()
	clk.Advance(service.DefaultAttendanceDuration)

	if len(sink.Records()) != 0 {
		t.Error("expected no marks after Stop")
	}
	if n := clk.PendingTimers(); n != 0 {
		t.Errorf("expected no pending timers, got %d", n)
	}
	if tr.StartIfNew("C3", "carol") {
		t.Error("expected StartIfNew to refuse after Stop")
	}
	if active, _ := tr.Counts(); active != 2 {
		t.Errorf("expected sessions to remain readable, got %d active", active)
	}
}

func TestAttendance_SessionsOrderedByEntry(t *testing.T) {
	tr, clk, _ := newTestTracker()
	tr.StartIfNew("B2", "bob")
	clk.Advance(time.Minute)
	tr.StartIfNew("A1", "alice")

	got := tr.Sessions()
	if len(got) != 2 || got[0].CardID != "B2" || got[1].CardID != "A1" {
		t.Errorf("unexpected order %+v", got)
	}
}

func TestAttendance_SinkFailureStillMarks(t *testing.T) {
	tr, clk, sink := newTestTracker()
	sink.FailWith(errors.New("disk full"))
	tr.StartIfNew("A1", "alice")
	clk.Advance(service.DefaultAttendanceDuration)

	if s, _ := tr.Session("A1"); !s.Marked {
		t.Error("expected session marked despite sink failure")
	}
	_, marked := tr.Counts()
	if marked != 1 {
		t.Errorf("expected 1 marked, got %d", marked)
	}
}
