package service_test

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lumnic12/attend/internal/attend/facematch"
	"github.com/Lumnic12/attend/internal/attend/service"
	"github.com/Lumnic12/attend/internal/attend/store"
	"github.com/Lumnic12/attend/internal/attend/store/file"
	"github.com/Lumnic12/attend/internal/attend/store/memory"
)

func newTestRegistrar() (*service.Registrar, *service.IdentityStore, *memory.Directory, *memory.ReferenceFaces) {
	an := &swatchAnalyzer{faces: map[uint8]facematch.Encoding{40: {0, 0}}}
	dir := memory.NewDirectory()
	faces := memory.NewReferenceFaces()
	ids := service.NewIdentityStore(dir, faces, an, quietLogger())
	return service.NewRegistrar(dir, faces, an, ids), ids, dir, faces
}

func TestRegister_EnrollsAndReloads(t *testing.T) {
	reg, ids, dir, faces := newTestRegistrar()
	ctx := context.Background()

	rec, err := reg.Register(ctx, service.RegisterRequest{CardID: " C3 ", Name: "Carol", Photo: swatch(40)})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.CardID != "C3" || rec.Name != "carol" {
		t.Errorf("unexpected record %+v", rec)
	}

	listed, _ := dir.List(ctx)
	if len(listed) != 1 || listed[0] != (store.IdentityRecord{CardID: "C3", Name: "carol"}) {
		t.Errorf("unexpected directory %+v", listed)
	}
	refs, _ := faces.List(ctx)
	if len(refs) != 1 || refs[0].Name != "carol" {
		t.Errorf("unexpected reference faces %+v", refs)
	}

	if name, ok := ids.Lookup("C3"); !ok || name != "carol" {
		t.Errorf("expected identity store to be reloaded, got %q ok=%v", name, ok)
	}
	if _, n := ids.Counts(); n != 1 {
		t.Errorf("expected 1 reference encoding, got %d", n)
	}
}

func TestRegister_Validation(t *testing.T) {
	cases := []struct {
		name string
		req  service.RegisterRequest
		want error
	}{
		{"missing name", service.RegisterRequest{CardID: "C3", Photo: swatch(40)}, service.ErrInvalidName},
		{"missing card", service.RegisterRequest{Name: "carol", Photo: swatch(40)}, service.ErrInvalidCardID},
		{"name equals card", service.RegisterRequest{CardID: "Carol", Name: "carol", Photo: swatch(40)}, service.ErrNameIsCardID},
		{"path in name", service.RegisterRequest{CardID: "C3", Name: "../carol", Photo: swatch(40)}, service.ErrInvalidUserName},
		{"missing photo", service.RegisterRequest{CardID: "C3", Name: "carol"}, service.ErrMissingPhoto},
		{"no face", service.RegisterRequest{CardID: "C3", Name: "carol", Photo: swatch(200)}, service.ErrNoFaceInPhoto},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg, _, dir, _ := newTestRegistrar()
			_, err := reg.Register(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if listed, _ := dir.List(context.Background()); len(listed) != 0 {
				t.Errorf("rejected registration must not touch the directory: %+v", listed)
			}
		})
	}
}

func TestRegister_ReplacesExistingReference(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "alice.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, swatch(40)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	an := &swatchAnalyzer{faces: map[uint8]facematch.Encoding{
		40:  {0, 0},
		160: {9, 9},
	}}
	users := memory.NewDirectory(store.IdentityRecord{CardID: "A1", Name: "alice"})
	faces := file.NewFaceDir(dir)
	ids := service.NewIdentityStore(users, faces, an, quietLogger())
	ctx := context.Background()
	if err := ids.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	reg := service.NewRegistrar(users, faces, an, ids)
	if _, err := reg.Register(ctx, service.RegisterRequest{CardID: "A1", Name: "alice", Photo: swatch(160)}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	names, encs := ids.AllEncodings()
	if len(names) != 1 || names[0] != "alice" {
		t.Fatalf("expected a single alice reference, got %v", names)
	}
	if encs[0][0] != 9 {
		t.Errorf("expected the new photo's encoding, got %v", encs[0])
	}
}
