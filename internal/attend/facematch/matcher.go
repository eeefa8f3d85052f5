package facematch

import (
	"context"
	"errors"
	"image"
	"iter"
	"log/slog"
	"math"
	"strings"
)

var (
	ErrCaptureFailed = errors.New("camera capture failed")
	ErrNoFace        = errors.New("no face detected")
)

// DefaultAngles is the rotation sweep applied to every captured frame:
// frontal first, then increasing head tilt.
var DefaultAngles = []float64{0, -15, 15, -30, 30}

const (
	DefaultThreshold    = 0.6
	DefaultCaptureTries = 3
)

// Camera produces live frames. Implementations own the device; the
// Matcher never calls Capture concurrently.
type Camera interface {
	Capture(ctx context.Context) (image.Image, error)
}

// Analyzer locates every face in an image and encodes it.
type Analyzer interface {
	Analyze(ctx context.Context, img image.Image) ([]Face, error)
}

// Outcome is the result class of one verification attempt.
type Outcome int

const (
	OutcomeUnauthorized Outcome = iota
	OutcomeMatched
	OutcomeMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeMatched:
		return "matched"
	case OutcomeMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

type Config struct {
	Threshold    float64
	CaptureTries int
	Angles       []float64
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.CaptureTries <= 0 {
		c.CaptureTries = DefaultCaptureTries
	}
	if len(c.Angles) == 0 {
		c.Angles = DefaultAngles
	}
	return c
}

// Result describes one Verify call. BestName and BestDistance record the
// closest reference seen anywhere in the search and are diagnostic only.
type Result struct {
	Outcome      Outcome
	MatchedName  string
	Distance     float64
	Angle        float64
	Frame        image.Image
	BestName     string
	BestDistance float64

	Captures        int
	CaptureFailures int
	Candidates      int
}

// Matcher runs the capture and rotation search for one expected identity.
type Matcher struct {
	camera   Camera
	analyzer Analyzer
	cfg      Config
	logger   *slog.Logger
}

func NewMatcher(camera Camera, analyzer Analyzer, cfg Config, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{camera: camera, analyzer: analyzer, cfg: cfg.withDefaults(), logger: logger}
}

// Config returns the effective configuration after defaults.
func (m *Matcher) Config() Config { return m.cfg }

// Verify searches live frames for a face whose nearest reference is
// expected and lies under the threshold. The first such face ends the
// search. names and encodings are parallel slices.
func (m *Matcher) Verify(ctx context.Context, expected string, names []string, encodings []Encoding) Result {
	res := Result{Outcome: OutcomeMismatch, Distance: math.Inf(1), BestDistance: math.Inf(1)}
	if len(encodings) == 0 || len(names) != len(encodings) {
		m.logger.Warn("no reference encodings loaded", "expected", expected)
		return res
	}

	for c := range m.candidates(ctx, &res) {
		for _, face := range c.faces {
			v := evaluate(expected, face.Encoding, names, encodings, m.cfg.Threshold)
			if v.index < 0 {
				continue
			}
			if v.distance < res.BestDistance {
				res.BestDistance = v.distance
				res.BestName = names[v.index]
			}
			if v.accepted {
				res.Outcome = OutcomeMatched
				res.MatchedName = names[v.index]
				res.Distance = v.distance
				res.Angle = c.angle
				res.Frame = c.frame
				return res
			}
		}
	}

	m.logger.Info("face not matched",
		"expected", expected,
		"best_name", res.BestName,
		"best_distance", res.BestDistance,
		"captures", res.Captures,
		"capture_failures", res.CaptureFailures,
	)
	return res
}

type candidate struct {
	try   int
	angle float64
	frame image.Image
	faces []Face
}

// candidates yields one entry per (captured frame, rotation angle) pair,
// in capture order then angle order. Capture and analysis failures are
// logged and skipped.
func (m *Matcher) candidates(ctx context.Context, res *Result) iter.Seq[candidate] {
	return func(yield func(candidate) bool) {
		for try := 1; try <= m.cfg.CaptureTries; try++ {
			res.Captures++
			frame, err := m.camera.Capture(ctx)
			if err != nil || frame == nil {
				res.CaptureFailures++
				m.logger.Debug("capture failed", "attempt", try, "err", err)
				continue
			}

			for _, angle := range m.cfg.Angles {
				faces, err := m.analyzer.Analyze(ctx, Rotate(frame, angle))
				res.Candidates++
				if err != nil {
					m.logger.Debug("face analysis failed", "attempt", try, "angle", angle, "err", err)
					continue
				}
				if !yield(candidate{try: try, angle: angle, frame: frame, faces: faces}) {
					return
				}
			}
		}
	}
}

type verdict struct {
	index    int
	distance float64
	accepted bool
}

// evaluate applies the accept rule to a single live encoding: the nearest
// reference must be under threshold and must be the expected identity.
func evaluate(expected string, enc Encoding, names []string, refs []Encoding, threshold float64) verdict {
	idx, dist := Nearest(enc, refs)
	if idx < 0 {
		return verdict{index: -1, distance: dist}
	}
	return verdict{
		index:    idx,
		distance: dist,
		accepted: dist < threshold && strings.EqualFold(names[idx], expected),
	}
}
