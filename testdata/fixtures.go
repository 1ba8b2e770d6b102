// Package testdata holds recorded hand poses and synthetic frames shared by
// tests across packages.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/signbridge/internal/detector"
)

//go:embed landmarks/*.json
var landmarksFS embed.FS

// Pose is one recorded hand with the letter the rule table gives it.
type Pose struct {
	Name       string
	Letter     string      `json:"letter"`
	Confidence int         `json:"confidence"`
	Landmarks  [][]float64 `json:"landmarks"`
}

// Points converts the raw tuples to detector points.
func (p Pose) Points() []detector.Point3D {
	pts, err := detector.PointsFromTuples(p.Landmarks)
	if err != nil {
		panic(fmt.Sprintf("testdata pose %s: %v", p.Name, err))
	}
	return pts
}

// RawPose returns the fixture file as stored, in the same shape the
// classify API and the websocket accept.
func RawPose(name string) ([]byte, error) {
	data, err := landmarksFS.ReadFile("landmarks/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load pose %s: %w", name, err)
	}
	return data, nil
}

// LoadPose loads a recorded pose by name, e.g. "fist".
func LoadPose(name string) (Pose, error) {
	data, err := RawPose(name)
	if err != nil {
		return Pose{}, err
	}
	var p Pose
	if err := json.Unmarshal(data, &p); err != nil {
		return Pose{}, fmt.Errorf("decode pose %s: %w", name, err)
	}
	p.Name = name
	return p, nil
}

// MustPose is LoadPose for tests; it panics on a missing fixture.
func MustPose(name string) Pose {
	p, err := LoadPose(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Poses loads every recorded pose sorted by name.
func Poses() ([]Pose, error) {
	entries, err := landmarksFS.ReadDir("landmarks")
	if err != nil {
		return nil, err
	}

	var poses []Pose
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		p, err := LoadPose(strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
		if err != nil {
			return nil, err
		}
		poses = append(poses, p)
	}
	sort.Slice(poses, func(i, j int) bool { return poses[i].Name < poses[j].Name })
	return poses, nil
}

// MotionFrames returns n frames alternating black and white, so every frame
// after the first reads as motion. Callers close the frames.
func MotionFrames(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
		if i%2 == 1 {
			m.SetTo(gocv.NewScalar(255, 255, 255, 0))
		}
		frames[i] = &m
	}
	return frames
}

// CloseFrames releases frames from MotionFrames.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
