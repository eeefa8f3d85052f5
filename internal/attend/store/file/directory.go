// Package file implements the store collaborators on plain files: a
// two-column CSV of authorized badges, a directory of reference photos
// named after their owner, and a single JPEG holding the last match.
package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Lumnic12/attend/internal/attend/store"
)

// CSVDirectory stores "card_id,name" lines. Lines that do not have exactly
// two fields are ignored.
type CSVDirectory struct {
	mu   sync.Mutex
	path string
}

func NewCSVDirectory(path string) *CSVDirectory {
	return &CSVDirectory{path: path}
}

func (d *CSVDirectory) List(context.Context) ([]store.IdentityRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.Open(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open user file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var out []store.IdentityRecord
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read user file: %w", err)
		}
		if len(fields) != 2 {
			continue
		}
		cardID := strings.TrimSpace(fields[0])
		name := strings.TrimSpace(fields[1])
		if cardID == "" || name == "" {
			continue
		}
		out = append(out, store.IdentityRecord{CardID: cardID, Name: name})
	}
	return out, nil
}

func (d *CSVDirectory) Add(_ context.Context, rec store.IdentityRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("mkdir user file dir: %w", err)
	}
	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open user file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{rec.CardID, rec.Name}); err != nil {
		_ = f.Close()
		return fmt.Errorf("append user: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("append user: %w", err)
	}
	return f.Close()
}
