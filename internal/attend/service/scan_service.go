package service

import (
	"context"
	"image"
	"log/slog"

	"github.com/Lumnic12/attend/internal/attend/clock"
	"github.com/Lumnic12/attend/internal/attend/facematch"
	"github.com/Lumnic12/attend/internal/attend/store"
	"github.com/Lumnic12/attend/internal/attend/types"
)

// Verifier is the face matcher as seen by the scan pipeline.
type Verifier interface {
	Verify(ctx context.Context, expected string, names []string, encodings []facematch.Encoding) facematch.Result
}

type ScanDependencies struct {
	Identities *IdentityStore
	Matcher    Verifier
	Attendance *AttendanceTracker
	Sink       store.AttendanceSink
	Snapshots  store.SnapshotStore // optional
	Clock      clock.Clock
	Metrics    Metrics
	Logger     *slog.Logger
}

// ScanService is the verification pipeline the correlator's worker runs
// for every badge scan.
type ScanService struct {
	identities *IdentityStore
	matcher    Verifier
	attendance *AttendanceTracker
	sink       store.AttendanceSink
	snapshots  store.SnapshotStore
	clock      clock.Clock
	metrics    Metrics
	logger     *slog.Logger
}

func NewScanService(d ScanDependencies) *ScanService {
	s := &ScanService{
		identities: d.Identities,
		matcher:    d.Matcher,
		attendance: d.Attendance,
		sink:       d.Sink,
		snapshots:  d.Snapshots,
		clock:      d.Clock,
		metrics:    d.Metrics,
		logger:     d.Logger,
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *ScanService) Process(ctx context.Context, ev types.CardEvent) types.ScanResult {
	logger := s.logger.With("card_id", ev.CardID, "token", ev.Token)

	expected, ok := s.identities.Lookup(ev.CardID)
	if !ok {
		logger.Warn("unauthorized card")
		s.record(ctx, logger, store.AttendanceRecord{
			CardID:     ev.CardID,
			Name:       store.UnknownName,
			Status:     store.StatusUnauthorized,
			Attendance: store.AttendanceAbsent,
		})
		return types.ResultUnauthorized
	}
	logger.Info("verifying face", "expected", expected)

	s.attendance.StartIfNew(ev.CardID, expected)

	names, encodings := s.identities.AllEncodings()
	res := s.matcher.Verify(ctx, expected, names, encodings)

	if res.Outcome != facematch.OutcomeMatched {
		logger.Info("access denied: face not matched", "best_name", res.BestName, "best_distance", res.BestDistance)
		s.record(ctx, logger, store.AttendanceRecord{
			CardID:     ev.CardID,
			Name:       store.UnknownName,
			Status:     store.StatusFaceMismatch,
			Attendance: store.AttendanceAbsent,
		})
		return types.ResultFaceFail
	}

	logger.Info("access granted", "name", res.MatchedName, "distance", res.Distance, "angle", res.Angle)
	s.record(ctx, logger, store.AttendanceRecord{
		CardID: ev.CardID,
		Name:   res.MatchedName,
		Status: store.StatusAuthorized,
	})
	s.saveSnapshot(ctx, logger, res.MatchedName, res.Frame)
	return types.ResultFaceOK
}

// record writes one outcome row. A sink failure is logged and does not
// change the scan result.
func (s *ScanService) record(ctx context.Context, logger *slog.Logger, rec store.AttendanceRecord) {
	rec.Timestamp = s.clock.Now()
	if err := s.sink.Append(ctx, rec); err != nil {
		s.metrics.SinkFailed()
		logger.Error("attendance record not persisted", "status", rec.Status, "err", err)
	}
}

func (s *ScanService) saveSnapshot(ctx context.Context, logger *slog.Logger, name string, frame image.Image) {
	if s.snapshots == nil || frame == nil {
		return
	}
	if err := s.snapshots.Save(ctx, name, frame, s.clock.Now()); err != nil {
		logger.Warn("snapshot not saved", "err", err)
	}
}
