package facematch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultFaceServiceURL = "http://localhost:8000"
	maxFrameBytes         = 16 << 20
	maxResponseBytes      = 1 << 20
)

// HTTPCamera reads frames from a camera that serves still snapshots over
// HTTP (most IP cameras and webcam bridges expose one).
type HTTPCamera struct {
	url    string
	client *http.Client
}

func NewHTTPCamera(url string, timeout time.Duration) *HTTPCamera {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPCamera{url: url, client: &http.Client{Timeout: timeout}}
}

func (c *HTTPCamera) Capture(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: camera status %d", ErrCaptureFailed, resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: decode frame: %v", ErrCaptureFailed, err)
	}
	return img, nil
}

// FaceServiceClient calls an external face service that detects and
// encodes faces. The service accepts a multipart "file" upload on
// POST /faces and answers with every face it found.
type FaceServiceClient struct {
	baseURL string
	client  *http.Client
}

func NewFaceServiceClient(baseURL string, timeout time.Duration) *FaceServiceClient {
	if baseURL == "" {
		baseURL = defaultFaceServiceURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FaceServiceClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type facesResponse struct {
	Faces []struct {
		// Box is top, right, bottom, left in pixels.
		Box      [4]int    `json:"box"`
		Encoding []float64 `json:"encoding"`
	} `json:"faces"`
}

func (c *FaceServiceClient) Analyze(ctx context.Context, img image.Image) ([]Face, error) {
	var frame bytes.Buffer
	if err := jpeg.Encode(&frame, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(frame.Bytes()); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/faces", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read face service response: %w", err)
	}
	if len(raw) > maxResponseBytes {
		return nil, fmt.Errorf("face service response exceeds %d bytes", maxResponseBytes)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("face service error (status %d): %s", resp.StatusCode, string(raw))
	}

	var fr facesResponse
	if err := json.Unmarshal(raw, &fr); err != nil {
		return nil, fmt.Errorf("decode face service response: %w", err)
	}

	faces := make([]Face, 0, len(fr.Faces))
	for _, f := range fr.Faces {
		if len(f.Encoding) == 0 {
			continue
		}
		top, right, bottom, left := f.Box[0], f.Box[1], f.Box[2], f.Box[3]
		faces = append(faces, Face{
			Box:      image.Rect(left, top, right, bottom),
			Encoding: Encoding(f.Encoding),
		})
	}
	return faces, nil
}

// EncodeReference returns the encoding of the first face found in a
// reference image, or ErrNoFace.
func EncodeReference(ctx context.Context, a Analyzer, img image.Image) (Encoding, error) {
	faces, err := a.Analyze(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, ErrNoFace
	}
	return faces[0].Encoding, nil
}
