package facematch_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Lumnic12/attend/internal/attend/facematch"
)

func TestHTTPCamera_Capture(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, solidFrame())
	}))
	defer ts.Close()

	img, err := facematch.NewHTTPCamera(ts.URL, time.Second).Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 8, 8) {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
}

func TestHTTPCamera_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no device", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := facematch.NewHTTPCamera(ts.URL, time.Second).Capture(context.Background())
	if !errors.Is(err, facematch.ErrCaptureFailed) {
		t.Errorf("expected ErrCaptureFailed, got %v", err)
	}
}

func TestFaceServiceClient_Analyze(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/faces" {
			http.NotFound(w, r)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		if _, _, err := image.Decode(f); err != nil {
			http.Error(w, "not an image", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"faces":[{"box":[10,40,50,5],"encoding":[0.1,0.2]},{"box":[0,0,0,0],"encoding":[]}]}`))
	}))
	defer ts.Close()

	faces, err := facematch.NewFaceServiceClient(ts.URL+"/", time.Second).Analyze(context.Background(), solidFrame())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected faces without encodings to be dropped, got %d", len(faces))
	}
	if faces[0].Box != image.Rect(5, 10, 40, 50) {
		t.Errorf("unexpected box %v", faces[0].Box)
	}
	if len(faces[0].Encoding) != 2 || faces[0].Encoding[1] != 0.2 {
		t.Errorf("unexpected encoding %v", faces[0].Encoding)
	}
}

func TestFaceServiceClient_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	if _, err := facematch.NewFaceServiceClient(ts.URL, time.Second).Analyze(context.Background(), solidFrame()); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestFaceServiceClient_OversizedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"faces":[],"pad":"`))
		_, _ = w.Write(bytes.Repeat([]byte("x"), 2<<20))
		_, _ = w.Write([]byte(`"}`))
	}))
	defer ts.Close()

	_, err := facematch.NewFaceServiceClient(ts.URL, 5*time.Second).Analyze(context.Background(), solidFrame())
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("expected size limit error, got %v", err)
	}
}
