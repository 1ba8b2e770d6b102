package asl

import "github.com/ayusman/signbridge/internal/detector"

// handBuilder poses a pixel-space hand (y down). Every finger starts curled
// (tip below base, not bent) with the thumb tucked beside the fist.
type handBuilder struct {
	pts []detector.Point3D
}

func newHand() *handBuilder {
	h := &handBuilder{pts: make([]detector.Point3D, detector.NumLandmarks)}
	h.pts[detector.Wrist] = detector.Point3D{X: 320, Y: 400}
	h.thumb(detector.Point3D{X: 360, Y: 380}, detector.Point3D{X: 375, Y: 315})
	h.curl(index, 350)
	h.curl(middle, 325)
	h.curl(ring, 300)
	h.curl(pinky, 275)
	return h
}

func (h *handBuilder) line(f finger, base, tip detector.Point3D) *handBuilder {
	for i := 0; i < 4; i++ {
		t := float64(i) / 3
		h.pts[f[i]] = detector.Point3D{
			X: base.X + (tip.X-base.X)*t,
			Y: base.Y + (tip.Y-base.Y)*t,
		}
	}
	return h
}

func (h *handBuilder) thumb(base, tip detector.Point3D) *handBuilder {
	return h.line(thumb, base, tip)
}

// curl folds the finger: tip below the base, middle joint below the tip.
func (h *handBuilder) curl(f finger, x float64) *handBuilder {
	h.pts[f[0]] = detector.Point3D{X: x, Y: 300}
	h.pts[f[1]] = detector.Point3D{X: x, Y: 330}
	h.pts[f[2]] = detector.Point3D{X: x, Y: 320}
	h.pts[f[3]] = detector.Point3D{X: x, Y: 310}
	return h
}

// bend hooks the finger: tip below the base and below the middle joint.
func (h *handBuilder) bend(f finger, x float64) *handBuilder {
	h.pts[f[0]] = detector.Point3D{X: x, Y: 300}
	h.pts[f[1]] = detector.Point3D{X: x, Y: 310}
	h.pts[f[2]] = detector.Point3D{X: x, Y: 305}
	h.pts[f[3]] = detector.Point3D{X: x, Y: 320}
	return h
}

// raise straightens the finger from (baseX, 300) to tip.
func (h *handBuilder) raise(f finger, baseX float64, tip detector.Point3D) *handBuilder {
	return h.line(f, detector.Point3D{X: baseX, Y: 300}, tip)
}

// up raises the finger straight up.
func (h *handBuilder) up(f finger, x float64) *handBuilder {
	return h.raise(f, x, detector.Point3D{X: x, Y: 190})
}

func (h *handBuilder) points() []detector.Point3D {
	return h.pts
}

// sideways returns index and middle raised with the index pointing right
// (|angle| well under 45 degrees) and the middle tip gap pixels left of the
// index tip.
func sideways(gap float64) []detector.Point3D {
	return newHand().
		raise(index, 300, detector.Point3D{X: 400, Y: 290}).
		raise(middle, 280, detector.Point3D{X: 400 - gap, Y: 250}).
		points()
}
