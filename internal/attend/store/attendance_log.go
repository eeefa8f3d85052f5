package store

import (
	"context"
	"time"
)

// Values written to AttendanceRecord.Status.
const (
	StatusAuthorized   = "Authorized"
	StatusUnauthorized = "Unauthorized"
	StatusFaceMismatch = "Face Not Match"
)

// Values written to AttendanceRecord.Attendance.
const (
	AttendanceAbsent  = "Absent"
	AttendancePresent = "Present"
)

// UnknownName is recorded when a scan could not be tied to a verified person.
const UnknownName = "Unknown"

// AttendanceRecord is one row of the append-only attendance log: either a
// verification outcome or a deferred presence mark.
type AttendanceRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	CardID     string    `json:"card_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Attendance string    `json:"attendance"` // empty when no attendance verdict applies
}

// AttendanceSink persists attendance records. Implementations do not
// retry; a failed Append is reported to the caller.
type AttendanceSink interface {
	Append(ctx context.Context, rec AttendanceRecord) error
}

// AttendanceHistory is implemented by sinks that can be read back.
type AttendanceHistory interface {
	Recent(ctx context.Context, limit int) ([]AttendanceRecord, error)
}

// AttendancePruner is implemented by sinks that support a retention
// period.
type AttendancePruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
