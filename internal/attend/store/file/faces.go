package file

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Lumnic12/attend/internal/attend/store"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// FaceDir keeps one reference photo per name as <dir>/<name>.jpg.
type FaceDir struct {
	dir string
}

func NewFaceDir(dir string) *FaceDir {
	return &FaceDir{dir: dir}
}

// List decodes every image in the directory. The directory is created if
// it does not exist yet. When several files share a name (alice.jpg and
// alice.png), only the most recently modified one is returned.
func (d *FaceDir) List(context.Context) ([]store.ReferenceImage, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir faces dir: %w", err)
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read faces dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	type candidate struct {
		file    string
		modTime time.Time
	}
	var order []string
	newest := make(map[string]candidate)
	for _, e := range entries {
		name, ok := referenceName(e)
		if !ok {
			continue
		}
		var mod time.Time
		if info, err := e.Info(); err == nil {
			mod = info.ModTime()
		}
		cur, seen := newest[name]
		if !seen {
			order = append(order, name)
		}
		if !seen || mod.After(cur.modTime) {
			newest[name] = candidate{file: e.Name(), modTime: mod}
		}
	}

	out := make([]store.ReferenceImage, 0, len(order))
	for _, name := range order {
		ref := store.ReferenceImage{Name: name}
		ref.Image, ref.Err = decodeFile(filepath.Join(d.dir, newest[name].file))
		out = append(out, ref)
	}
	return out, nil
}

// Save writes <dir>/<name>.jpg and removes any other image stored under
// the same name.
func (d *FaceDir) Save(_ context.Context, name string, img image.Image) error {
	if strings.ContainsAny(name, `/\`) || name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid reference name %q", name)
	}
	data, err := store.EncodeJPEG(img)
	if err != nil {
		return fmt.Errorf("encode reference: %w", err)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir faces dir: %w", err)
	}
	target := name + ".jpg"
	if err := writeFileAtomic(filepath.Join(d.dir, target), data); err != nil {
		return err
	}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("read faces dir: %w", err)
	}
	for _, e := range entries {
		if other, ok := referenceName(e); !ok || other != name || e.Name() == target {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale reference %s: %w", e.Name(), err)
		}
	}
	return nil
}

// referenceName returns the owner name of an image file in the faces
// directory.
func referenceName(e fs.DirEntry) (string, bool) {
	ext := filepath.Ext(e.Name())
	if e.IsDir() || !imageExts[strings.ToLower(ext)] {
		return "", false
	}
	return strings.TrimSuffix(e.Name(), ext), true
}

// SnapshotFile keeps the last accepted frame in a single JPEG file. The
// matched name is held in memory only and is empty after a restart.
type SnapshotFile struct {
	path string

	mu   sync.Mutex
	name string
}

func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

func (s *SnapshotFile) Save(_ context.Context, name string, img image.Image, _ time.Time) error {
	data, err := store.EncodeJPEG(img)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir snapshot dir: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
	return nil
}

func (s *SnapshotFile) Latest(context.Context) (store.Snapshot, error) {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return store.Snapshot{}, store.ErrNoSnapshot
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("stat snapshot: %w", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	s.mu.Lock()
	name := s.name
	s.mu.Unlock()
	return store.Snapshot{Name: name, TakenAt: info.ModTime().UTC(), JPEG: data}, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// writeFileAtomic replaces path so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
