package asl

import "github.com/ayusman/signbridge/internal/detector"

// Unknown is the letter reported when no rule matches.
const (
	Unknown           = "?"
	UnknownConfidence = 30
)

// Result is a classified letter with its fixed rule confidence.
type Result struct {
	Letter     string `json:"letter"`
	Confidence int    `json:"confidence"`
}

// IsUnknown reports whether r is the no-match sentinel.
func (r Result) IsUnknown() bool {
	return r.Letter == Unknown
}

var unknownResult = Result{Letter: Unknown, Confidence: UnknownConfidence}

// Classify extracts features from points and returns the first matching letter.
func Classify(points []detector.Point3D) (Result, error) {
	f, err := ExtractFeatures(points)
	if err != nil {
		return Result{}, err
	}
	return ClassifyFeatures(f), nil
}

// ClassifyFeatures walks the rule table and returns the first match, or the
// unknown sentinel.
func ClassifyFeatures(f Features) Result {
	for _, r := range rules {
		if r.match(f) {
			return Result{Letter: r.Letter, Confidence: r.Confidence}
		}
	}
	return unknownResult
}

// Candidates returns every matching rule in evaluation order. The first
// element, when present, is what ClassifyFeatures reports.
func Candidates(f Features) []Result {
	var out []Result
	for _, r := range rules {
		if r.match(f) {
			out = append(out, Result{Letter: r.Letter, Confidence: r.Confidence})
		}
	}
	return out
}
