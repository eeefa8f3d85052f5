package xlsx_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lumnic12/attend/internal/attend/store"
	"github.com/Lumnic12/attend/internal/attend/store/xlsx"
)

func TestWorkbook_AppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "attendance.xlsx")
	wb := xlsx.NewWorkbook(path, time.UTC)
	ctx := context.Background()
	ts := time.Date(2026, 2, 15, 9, 30, 0, 0, time.UTC)

	if err := wb.Append(ctx, store.AttendanceRecord{
		Timestamp: ts, CardID: "A1", Name: "alice", Status: store.StatusAuthorized,
	}); err != nil {
		t.Fatalf("Append 1: %v", err)
	}
	if err := wb.Append(ctx, store.AttendanceRecord{
		Timestamp: ts.Add(50 * time.Minute), CardID: "A1", Name: "alice",
		Status: store.StatusAuthorized, Attendance: store.AttendancePresent,
	}); err != nil {
		t.Fatalf("Append 2: %v", err)
	}

	rows, err := wb.Rows()
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d: %v", len(rows), rows)
	}
	if rows[0][0] != "Timestamp" || rows[0][4] != "Attendance" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "2026-02-15 09:30:00" || rows[1][1] != "A1" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if len(rows[2]) < 5 || rows[2][4] != store.AttendancePresent {
		t.Errorf("expected Present in last row, got %v", rows[2])
	}
}
