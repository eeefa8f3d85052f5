package facematch

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate returns img rotated by angle degrees about its centre, keeping
// the original bounds. Positive angles rotate counter-clockwise. Pixels
// uncovered by the rotation are left transparent black.
func Rotate(img image.Image, angle float64) image.Image {
	if angle == 0 {
		return img
	}
	b := img.Bounds()
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2

	rad := angle * math.Pi / 180
	alpha, beta := math.Cos(rad), math.Sin(rad)

	// Source-to-destination affine map for a rotation about (cx, cy).
	s2d := f64.Aff3{
		alpha, beta, (1-alpha)*cx - beta*cy,
		-beta, alpha, beta*cx + (1-alpha)*cy,
	}

	dst := image.NewRGBA(b)
	draw.BiLinear.Transform(dst, s2d, img, b, draw.Src, nil)
	return dst
}
