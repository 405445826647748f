// Package transform applies the image transforms a bundle's metadata asks for.
package transform

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// Direction is a rotation requested by bundle metadata.
type Direction string

const (
	None  Direction = "none"
	Left  Direction = "left"
	Right Direction = "right"
)

// ParseDirection maps a metadata value to a Direction, case-insensitively.
// Unknown values, including padded ones, map to None so newer metadata keeps
// building.
func ParseDirection(v string) Direction {
	switch d := Direction(strings.ToLower(v)); d {
	case Left, Right:
		return d
	default:
		return None
	}
}

// Angle returns the counter-clockwise rotation in degrees.
func (d Direction) Angle() int {
	switch d {
	case Left:
		return 90
	case Right:
		return -90
	default:
		return 0
	}
}

// Transformer rotates images.
type Transformer interface {
	Rotate(path string, d Direction) (image.Image, error)
}

// Rotator is the Transformer backed by disintegration/imaging.
type Rotator struct{}

// NewRotator creates a Rotator.
func NewRotator() *Rotator {
	return &Rotator{}
}

// Rotate decodes the image at path and rotates it. Rotation grows the canvas
// to fit, and the result is always NRGBA.
func (r *Rotator) Rotate(path string, d Direction) (image.Image, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	switch d {
	case Left:
		return imaging.Rotate90(src), nil
	case Right:
		return imaging.Rotate270(src), nil
	default:
		return imaging.Clone(src), nil
	}
}
