package memory

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/Lumnic12/attend/internal/attend/store"
)

type Directory struct {
	mu      sync.RWMutex
	records []store.IdentityRecord
}

func NewDirectory(records ...store.IdentityRecord) *Directory {
	return &Directory{records: append([]store.IdentityRecord(nil), records...)}
}

func (d *Directory) List(context.Context) ([]store.IdentityRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]store.IdentityRecord, len(d.records))
	copy(out, d.records)
	return out, nil
}

func (d *Directory) Add(_ context.Context, rec store.IdentityRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, rec)
	return nil
}

type ReferenceFaces struct {
	mu     sync.RWMutex
	order  []string
	images map[string]image.Image
}

func NewReferenceFaces() *ReferenceFaces {
	return &ReferenceFaces{images: make(map[string]image.Image)}
}

func (r *ReferenceFaces) List(context.Context) ([]store.ReferenceImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]store.ReferenceImage, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, store.ReferenceImage{Name: name, Image: r.images[name]})
	}
	return out, nil
}

func (r *ReferenceFaces) Save(_ context.Context, name string, img image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[name]; !ok {
		r.order = append(r.order, name)
	}
	r.images[name] = img
	return nil
}

type SnapshotStore struct {
	mu   sync.RWMutex
	last *store.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

func (s *SnapshotStore) Save(_ context.Context, name string, img image.Image, at time.Time) error {
	data, err := store.EncodeJPEG(img)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &store.Snapshot{Name: name, TakenAt: at, JPEG: data}
	return nil
}

func (s *SnapshotStore) Latest(context.Context) (store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return store.Snapshot{}, store.ErrNoSnapshot
	}
	return *s.last, nil
}
