// Package facematch verifies that a live camera capture shows the person a
// badge claims to belong to.
//
// The package does not detect or encode faces itself. It drives a Camera
// and an Analyzer (an external face-encoding capability) and applies a
// nearest-reference distance rule with an identity-consistency check.
package facematch

import (
	"image"
	"math"
)

// Encoding is a fixed-length face descriptor. Smaller distances between
// two encodings mean more similar faces.
type Encoding []float64

// Face is one face found in an image.
type Face struct {
	Box      image.Rectangle
	Encoding Encoding
}

// Distance returns the Euclidean distance between a and b. Encodings of
// different or zero length are infinitely far apart.
func Distance(a, b Encoding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Nearest returns the index of the reference closest to query and its
// distance. It returns -1 when refs is empty.
func Nearest(query Encoding, refs []Encoding) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i, ref := range refs {
		if d := Distance(query, ref); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
