package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/Lumnic12/attend/internal/attend/facematch"
	"github.com/Lumnic12/attend/internal/attend/store"
)

var (
	ErrInvalidName     = errors.New("name is required")
	ErrNameIsCardID    = errors.New("name and card_id must differ")
	ErrMissingPhoto    = errors.New("photo is required")
	ErrNoFaceInPhoto   = errors.New("no face found in photo")
	ErrInvalidUserName = errors.New("name must not contain path separators")
)

type RegisterRequest struct {
	CardID string
	Name   string
	Photo  image.Image
}

// Registrar enrolls a new badge holder: it stores the reference photo,
// appends the badge to the directory and reloads the identity store.
type Registrar struct {
	directory  store.IdentityDirectory
	faces      store.ReferenceFaces
	analyzer   facematch.Analyzer
	identities *IdentityStore
}

func NewRegistrar(dir store.IdentityDirectory, faces store.ReferenceFaces, analyzer facematch.Analyzer, identities *IdentityStore) *Registrar {
	return &Registrar{directory: dir, faces: faces, analyzer: analyzer, identities: identities}
}

func (r *Registrar) Register(ctx context.Context, req RegisterRequest) (store.IdentityRecord, error) {
	cardID := strings.TrimSpace(req.CardID)
	name := normalizeName(req.Name)

	switch {
	case name == "":
		return store.IdentityRecord{}, ErrInvalidName
	case cardID == "":
		return store.IdentityRecord{}, ErrInvalidCardID
	case name == strings.ToLower(cardID):
		return store.IdentityRecord{}, ErrNameIsCardID
	case strings.ContainsAny(name, `/\`):
		return store.IdentityRecord{}, ErrInvalidUserName
	case req.Photo == nil:
		return store.IdentityRecord{}, ErrMissingPhoto
	}

	if r.analyzer != nil {
		if _, err := facematch.EncodeReference(ctx, r.analyzer, req.Photo); err != nil {
			if errors.Is(err, facematch.ErrNoFace) {
				return store.IdentityRecord{}, ErrNoFaceInPhoto
			}
			return store.IdentityRecord{}, fmt.Errorf("encode photo: %w", err)
		}
	}

	rec := store.IdentityRecord{CardID: cardID, Name: name}
	if err := r.faces.Save(ctx, name, req.Photo); err != nil {
		return store.IdentityRecord{}, fmt.Errorf("save reference photo: %w", err)
	}
	if err := r.directory.Add(ctx, rec); err != nil {
		return store.IdentityRecord{}, fmt.Errorf("add to directory: %w", err)
	}
	if r.identities != nil {
		if err := r.identities.Load(ctx); err != nil {
			return rec, fmt.Errorf("reload identities: %w", err)
		}
	}
	return rec, nil
}
