package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Lumnic12/attend/internal/attend/clock"
	"github.com/Lumnic12/attend/internal/attend/service"
	"github.com/Lumnic12/attend/internal/attend/store"
	"github.com/Lumnic12/attend/internal/attend/store/memory"
)

func TestLogPruner_DisabledWhenRetentionZero(t *testing.T) {
	log := memory.NewAttendanceLog()
	pruner := service.NewLogPruner(log, service.PrunerConfig{RetentionDays: 0}, quietLogger())

	pruner.Start(context.Background())
	// Stop should return immediately without error.
	pruner.Stop()

	if n := pruner.PruneOnce(context.Background()); n != 0 {
		t.Errorf("disabled pruner deleted %d records", n)
	}
}

func TestLogPruner_PrunesOldRecords(t *testing.T) {
	log := memory.NewAttendanceLog()
	ctx := context.Background()
	clk := clock.Fake(epoch)

	_ = log.Append(ctx, store.AttendanceRecord{Timestamp: epoch.AddDate(0, 0, -40), CardID: "OLD"})
	_ = log.Append(ctx, store.AttendanceRecord{Timestamp: epoch.AddDate(0, 0, -1), CardID: "RECENT"})

	pruner := service.NewLogPruner(log, service.PrunerConfig{RetentionDays: 30, Clock: clk}, quietLogger())
	if n := pruner.PruneOnce(ctx); n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}

	recs := log.Records()
	if len(recs) != 1 || recs[0].CardID != "RECENT" {
		t.Errorf("unexpected survivors %+v", recs)
	}
}

func TestLogPruner_StartRunsImmediately(t *testing.T) {
	log := memory.NewAttendanceLog()
	_ = log.Append(context.Background(), store.AttendanceRecord{Timestamp: time.Now().AddDate(0, 0, -90), CardID: "OLD"})

	pruner := service.NewLogPruner(log, service.PrunerConfig{RetentionDays: 30, IntervalHours: 1}, quietLogger())
	pruner.Start(context.Background())
	defer pruner.Stop()

	waitFor(t, "startup prune", func() bool { return len(log.Records()) == 0 })
}

func TestLogPruner_StopIsIdempotent(t *testing.T) {
	pruner := service.NewLogPruner(memory.NewAttendanceLog(), service.PrunerConfig{RetentionDays: 30}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	pruner.Start(ctx)

	cancel()
	// Multiple stops should not panic.
	pruner.Stop()
	pruner.Stop()
}

func TestLogPruner_StopWithoutStart(t *testing.T) {
	pruner := service.NewLogPruner(memory.NewAttendanceLog(), service.PrunerConfig{RetentionDays: 30}, quietLogger())
	pruner.Stop()
}
