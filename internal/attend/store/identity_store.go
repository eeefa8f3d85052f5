package store

import (
	"context"
	"errors"
	"image"
	"time"
)

// IdentityRecord maps a badge to the name it was issued to.
type IdentityRecord struct {
	CardID string
	Name   string
}

// IdentityDirectory is the append-only list of authorized badges.
type IdentityDirectory interface {
	List(ctx context.Context) ([]IdentityRecord, error)
	Add(ctx context.Context, rec IdentityRecord) error
}

// ReferenceImage is one enrolled face photo. Err is set when the stored
// file exists but could not be decoded.
type ReferenceImage struct {
	Name  string
	Image image.Image
	Err   error
}

// ReferenceFaces holds one reference photo per enrolled name.
type ReferenceFaces interface {
	List(ctx context.Context) ([]ReferenceImage, error)
	Save(ctx context.Context, name string, img image.Image) error
}

var ErrNoSnapshot = errors.New("no snapshot recorded")

// Snapshot is the last frame accepted by face verification, JPEG encoded.
type Snapshot struct {
	Name    string
	TakenAt time.Time
	JPEG    []byte
}

// SnapshotStore keeps the most recent accepted frame for display.
type SnapshotStore interface {
	Save(ctx context.Context, name string, img image.Image, at time.Time) error
	Latest(ctx context.Context) (Snapshot, error)
}
