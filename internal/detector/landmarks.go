// Package detector provides hand detection interfaces and the landmark model
// shared by the letter classifier.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrMalformedPoint is returned when a raw coordinate tuple has fewer than two values.
var ErrMalformedPoint = errors.New("landmark point needs at least x and y")

// Point3D represents a landmark in the detector's coordinate space.
// Y grows downward, as produced by image-space detectors.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IsFinite reports whether every coordinate is a finite number.
func (p Point3D) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// HandLandmarks represents the 21 hand landmarks of one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Slice returns the landmark points as a slice in index order.
func (h HandLandmarks) Slice() []Point3D {
	out := make([]Point3D, NumLandmarks)
	copy(out, h.Points[:])
	return out
}

// BoundingBox is the axis-aligned box enclosing a set of landmarks.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bounds computes the bounding box of points. An empty input yields a zero box.
func Bounds(points []Point3D) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	return BoundingBox{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// BoundingBox returns the overlay box for the hand.
func (h HandLandmarks) BoundingBox() BoundingBox {
	return Bounds(h.Points[:])
}

// PointsFromTuples converts [x, y] or [x, y, z] tuples, the shape browser
// hand-pose models emit, into points. Any other tuple length is malformed.
func PointsFromTuples(tuples [][]float64) ([]Point3D, error) {
	points := make([]Point3D, len(tuples))
	for i, t := range tuples {
		if len(t) < 2 || len(t) > 3 {
			return nil, fmt.Errorf("point %d has %d values: %w", i, len(t), ErrMalformedPoint)
		}
		points[i] = Point3D{X: t[0], Y: t[1]}
		if len(t) == 3 {
			points[i].Z = t[2]
		}
	}
	return points, nil
}
