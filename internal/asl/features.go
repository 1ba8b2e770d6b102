// Package asl turns 21-point hand skeletons into fingerspelled letters using
// a fixed table of geometric rules, and holds the state helpers built on top
// of it (transcript, practice drills, letter tips).
package asl

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/signbridge/internal/detector"
)

// ErrInvalidLandmarks is returned for landmark sets the extractor cannot read:
// the wrong number of points or non-finite coordinates.
var ErrInvalidLandmarks = errors.New("invalid landmarks")

// finger lists the four landmark indices of one digit, base to tip.
type finger [4]int

var (
	thumb  = finger{detector.ThumbCMC, detector.ThumbMCP, detector.ThumbIP, detector.ThumbTip}
	index  = finger{detector.IndexMCP, detector.IndexPIP, detector.IndexDIP, detector.IndexTip}
	middle = finger{detector.MiddleMCP, detector.MiddlePIP, detector.MiddleDIP, detector.MiddleTip}
	ring   = finger{detector.RingMCP, detector.RingPIP, detector.RingDIP, detector.RingTip}
	pinky  = finger{detector.PinkyMCP, detector.PinkyPIP, detector.PinkyDIP, detector.PinkyTip}
)

func (f finger) base() int { return f[0] }
func (f finger) mid() int  { return f[2] }
func (f finger) tip() int  { return f[3] }

// Features is the value object the rule table reads. It is derived from one
// landmark set and never mutated.
type Features struct {
	ThumbExtended  bool `json:"thumb_extended"` // computed, read by no rule
	IndexExtended  bool `json:"index_extended"`
	MiddleExtended bool `json:"middle_extended"`
	RingExtended   bool `json:"ring_extended"`
	PinkyExtended  bool `json:"pinky_extended"`

	IndexBent  bool `json:"index_bent"`
	MiddleBent bool `json:"middle_bent"`
	RingBent   bool `json:"ring_bent"`
	PinkyBent  bool `json:"pinky_bent"`

	IndexX  float64 `json:"index_x"`
	MiddleX float64 `json:"middle_x"`
	RingX   float64 `json:"ring_x"`
	PinkyX  float64 `json:"pinky_x"`

	// Degrees in (-180, 180].
	ThumbAngle float64 `json:"thumb_angle"`
	IndexAngle float64 `json:"index_angle"`
}

// ExtractFeatures computes the feature vector for exactly 21 landmarks.
func ExtractFeatures(points []detector.Point3D) (Features, error) {
	if len(points) != detector.NumLandmarks {
		return Features{}, fmt.Errorf("%w: got %d points, want %d", ErrInvalidLandmarks, len(points), detector.NumLandmarks)
	}
	for i, p := range points {
		if !p.IsFinite() {
			return Features{}, fmt.Errorf("%w: point %d is not finite", ErrInvalidLandmarks, i)
		}
	}

	// Image space: a smaller Y is higher up.
	extended := func(f finger) bool { return points[f.tip()].Y < points[f.base()].Y }
	bent := func(f finger) bool { return points[f.mid()].Y < points[f.tip()].Y }
	angle := func(f finger) float64 { return direction(points[f.base()], points[f.tip()]) }

	return Features{
		ThumbExtended:  extended(thumb),
		IndexExtended:  extended(index),
		MiddleExtended: extended(middle),
		RingExtended:   extended(ring),
		PinkyExtended:  extended(pinky),

		IndexBent:  bent(index),
		MiddleBent: bent(middle),
		RingBent:   bent(ring),
		PinkyBent:  bent(pinky),

		IndexX:  points[index.tip()].X,
		MiddleX: points[middle.tip()].X,
		RingX:   points[ring.tip()].X,
		PinkyX:  points[pinky.tip()].X,

		ThumbAngle: angle(thumb),
		IndexAngle: angle(index),
	}, nil
}

// direction is the image-space angle of the base->tip vector in degrees.
// Atan2 yields -180 for a negative-zero dy; that folds to 180.
func direction(base, tip detector.Point3D) float64 {
	deg := math.Atan2(tip.Y-base.Y, tip.X-base.X) * 180 / math.Pi
	if deg == -180 {
		return 180
	}
	return deg
}
