package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SeedDevOptions struct {
	// Identities are "card_id:name" pairs inserted into the identities
	// table so a dev server can be exercised without enrolling anyone.
	Identities []string
}

func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	for _, pair := range opt.Identities {
		cardID, name, ok := strings.Cut(pair, ":")
		cardID = strings.TrimSpace(cardID)
		name = strings.TrimSpace(name)
		if !ok || cardID == "" || name == "" {
			continue
		}

		if _, err := db.ExecContext(ctx, `
INSERT INTO identities(card_id, name, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(card_id) DO UPDATE SET
  name = excluded.name,
  updated_at_ms = excluded.updated_at_ms;
`, cardID, name, now, now); err != nil {
			return fmt.Errorf("seed identity %s: %w", cardID, err)
		}
	}

	return nil
}
