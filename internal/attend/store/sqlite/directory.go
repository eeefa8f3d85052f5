package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Lumnic12/attend/internal/attend/store"
	dbpkg "github.com/Lumnic12/attend/internal/db"
)

// Directory keeps authorized badges in the identities table. Re-adding a
// card replaces the name it maps to.
type Directory struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDirectory(db *sql.DB, writer *dbpkg.Worker) *Directory {
	return &Directory{db: db, writer: writer}
}

func (s *Directory) List(ctx context.Context) ([]store.IdentityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT card_id, name FROM identities ORDER BY created_at_ms, card_id;
`)
	if err != nil {
		return nil, fmt.Errorf("List query: %w", err)
	}
	defer rows.Close()

	var out []store.IdentityRecord
	for rows.Next() {
		var rec store.IdentityRecord
		if err := rows.Scan(&rec.CardID, &rec.Name); err != nil {
			return nil, fmt.Errorf("List scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Directory) Add(ctx context.Context, rec store.IdentityRecord) error {
	cardID := strings.TrimSpace(rec.CardID)
	name := strings.TrimSpace(rec.Name)
	if cardID == "" || name == "" {
		return fmt.Errorf("Add: card_id and name are required")
	}
	ms := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO identities(card_id, name, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(card_id) DO UPDATE SET
  name = excluded.name,
  updated_at_ms = excluded.updated_at_ms;
`, cardID, name, ms, ms); err != nil {
			return fmt.Errorf("Add upsert: %w", err)
		}
		return nil
	})
}
