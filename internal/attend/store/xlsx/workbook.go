// Package xlsx appends attendance records to a spreadsheet workbook, one
// row per record, for people who read attendance in a spreadsheet tool.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Lumnic12/attend/internal/attend/store"
)

const timestampLayout = "2006-01-02 15:04:05"

var header = []any{"Timestamp", "Card ID", "Name", "Status", "Attendance"}

// Workbook reopens the file on every Append so edits made by other tools
// between writes are preserved. Appends within this process are
// serialized.
type Workbook struct {
	mu   sync.Mutex
	path string
	loc  *time.Location
}

func NewWorkbook(path string, loc *time.Location) *Workbook {
	if loc == nil {
		loc = time.Local
	}
	return &Workbook{path: path, loc: loc}
}

func (w *Workbook) Append(_ context.Context, rec store.AttendanceRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}

	next := len(rows) + 1
	if len(rows) == 0 {
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		next = 2
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	row := []any{ts.In(w.loc).Format(timestampLayout), rec.CardID, rec.Name, rec.Status, rec.Attendance}
	cell, err := excelize.CoordinatesToCellName(1, next)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Rows returns every row of the active sheet, header included.
func (w *Workbook) Rows() ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
}

func (w *Workbook) open() (*excelize.File, error) {
	if _, err := os.Stat(w.path); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir workbook dir: %w", err)
		}
		return excelize.NewFile(), nil
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return f, nil
}
