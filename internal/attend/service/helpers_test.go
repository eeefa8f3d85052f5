package service_test

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"

	"github.com/Lumnic12/attend/internal/attend/facematch"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// swatch returns a small solid image whose red channel identifies it to
// swatchAnalyzer.
func swatch(key uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: key, A: 255})
		}
	}
	return img
}

// swatchAnalyzer reports one face per image, keyed by the red channel of
// the centre pixel give or take resampling or JPEG error. Keys must be
// spaced at least 25 apart; unknown keys have no face.
type swatchAnalyzer struct {
	mu    sync.Mutex
	faces map[uint8]facematch.Encoding
	calls int
}

func (a *swatchAnalyzer) Analyze(_ context.Context, img image.Image) ([]facematch.Face, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	b := img.Bounds()
	r, _, _, _ := img.At(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2).RGBA()
	red := int(r >> 8)
	for key, enc := range a.faces {
		if d := red - int(key); d >= -12 && d <= 12 {
			return []facematch.Face{{Box: b, Encoding: enc}}, nil
		}
	}
	return nil, nil
}

// stubVerifier returns a fixed result and records what it was asked.
type stubVerifier struct {
	mu       sync.Mutex
	result   facematch.Result
	calls    int
	expected []string
}

func (v *stubVerifier) Verify(_ context.Context, expected string, _ []string, _ []facematch.Encoding) facematch.Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	v.expected = append(v.expected, expected)
	return v.result
}

func (v *stubVerifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type countingCamera struct {
	mu    sync.Mutex
	calls int
	frame image.Image
}

func (c *countingCamera) Capture(context.Context) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.frame, nil
}

func (c *countingCamera) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
