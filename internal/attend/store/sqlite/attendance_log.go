package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Lumnic12/attend/internal/attend/store"
	dbpkg "github.com/Lumnic12/attend/internal/db"
)

type AttendanceLog struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAttendanceLog(db *sql.DB, writer *dbpkg.Worker) *AttendanceLog {
	return &AttendanceLog{db: db, writer: writer}
}

func (s *AttendanceLog) Append(ctx context.Context, rec store.AttendanceRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	recordedMs := rec.Timestamp.UTC().UnixMilli()

	var attendance any
	if rec.Attendance != "" {
		attendance = rec.Attendance
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO attendance_log(
  recorded_at_ms, card_id, name, status, attendance
) VALUES (?, ?, ?, ?, ?);
`, recordedMs, rec.CardID, rec.Name, rec.Status, attendance); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}
		return nil
	})
}

// PruneOlderThan deletes records logged before cutoff and returns the
// number of rows removed.
//
// Uses the idx_attendance_log_time index for a range scan.
func (s *AttendanceLog) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM attendance_log
WHERE recorded_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

// Recent returns up to limit records, newest first.
func (s *AttendanceLog) Recent(ctx context.Context, limit int) ([]store.AttendanceRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT recorded_at_ms, card_id, name, status, attendance
FROM attendance_log
ORDER BY recorded_at_ms DESC, id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent query: %w", err)
	}
	defer rows.Close()

	var out []store.AttendanceRecord
	for rows.Next() {
		var (
			ms         int64
			rec        store.AttendanceRecord
			attendance sql.NullString
		)
		if err := rows.Scan(&ms, &rec.CardID, &rec.Name, &rec.Status, &attendance); err != nil {
			return nil, fmt.Errorf("Recent scan: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ms).UTC()
		rec.Attendance = attendance.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
