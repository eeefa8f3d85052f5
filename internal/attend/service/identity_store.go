package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Lumnic12/attend/internal/attend/facematch"
	"github.com/Lumnic12/attend/internal/attend/store"
)

// IdentityStore answers "who does this badge belong to" and "what do the
// enrolled faces look like". Readers see an immutable snapshot; Load
// builds a replacement and swaps it in.
type IdentityStore struct {
	directory store.IdentityDirectory
	faces     store.ReferenceFaces
	analyzer  facematch.Analyzer
	logger    *slog.Logger

	loadMu sync.Mutex
	snap   atomic.Pointer[identitySnapshot]
}

type identitySnapshot struct {
	cards     map[string]string
	names     []string
	encodings []facematch.Encoding
}

func NewIdentityStore(dir store.IdentityDirectory, faces store.ReferenceFaces, analyzer facematch.Analyzer, logger *slog.Logger) *IdentityStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &IdentityStore{directory: dir, faces: faces, analyzer: analyzer, logger: logger}
	s.snap.Store(&identitySnapshot{cards: map[string]string{}})
	return s
}

// Load rebuilds both maps from the collaborators. A reference photo that
// cannot be decoded or encoded is skipped with a warning. If a
// collaborator itself fails, the previous snapshot stays in place.
func (s *IdentityStore) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	records, err := s.directory.List(ctx)
	if err != nil {
		return fmt.Errorf("load identity directory: %w", err)
	}
	refs, err := s.faces.List(ctx)
	if err != nil {
		return fmt.Errorf("load reference faces: %w", err)
	}

	next := &identitySnapshot{cards: make(map[string]string, len(records))}
	for _, rec := range records {
		cardID := strings.TrimSpace(rec.CardID)
		name := normalizeName(rec.Name)
		if cardID == "" || name == "" {
			continue
		}
		next.cards[cardID] = name
	}

	index := make(map[string]int, len(refs))
	for _, ref := range refs {
		name := normalizeName(ref.Name)
		if ref.Err != nil {
			s.logger.Warn("skipping unreadable reference image", "name", name, "err", ref.Err)
			continue
		}
		enc, err := facematch.EncodeReference(ctx, s.analyzer, ref.Image)
		if err != nil {
			if errors.Is(err, facematch.ErrNoFace) {
				s.logger.Warn("no face in reference image", "name", name)
			} else {
				s.logger.Warn("reference encoding failed", "name", name, "err", err)
			}
			continue
		}
		if i, dup := index[name]; dup {
			s.logger.Warn("duplicate reference name, keeping latest", "name", name)
			next.encodings[i] = enc
			continue
		}
		index[name] = len(next.names)
		next.names = append(next.names, name)
		next.encodings = append(next.encodings, enc)
	}

	s.snap.Store(next)
	s.logger.Info("identities loaded", "cards", len(next.cards), "references", len(next.names))
	return nil
}

// Lookup returns the lower-cased name a card was issued to.
func (s *IdentityStore) Lookup(cardID string) (string, bool) {
	name, ok := s.snap.Load().cards[cardID]
	return name, ok
}

// AllEncodings returns parallel name and encoding slices. Callers must not
// modify them.
func (s *IdentityStore) AllEncodings() ([]string, []facematch.Encoding) {
	snap := s.snap.Load()
	return snap.names, snap.encodings
}

// Counts returns the number of known cards and loaded reference faces.
func (s *IdentityStore) Counts() (cards, references int) {
	snap := s.snap.Load()
	return len(snap.cards), len(snap.names)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
