package asl

import (
	"sort"

	"github.com/ayusman/signbridge/internal/detector"
)

// LabeledSample is a recorded landmark set with the letter the signer meant.
type LabeledSample struct {
	Letter string
	Points []detector.Point3D
}

// LetterStats is the per-letter slice of a Report.
type LetterStats struct {
	Letter  string `json:"letter"`
	Total   int    `json:"total"`
	Correct int    `json:"correct"`
	// Predicted counts what the table answered for this letter's samples.
	Predicted map[string]int `json:"predicted"`
}

// Accuracy is Correct/Total, or 0 for an empty bucket.
func (s LetterStats) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}

// Report summarises how the rule table performs on recorded samples.
type Report struct {
	Total    int           `json:"total"`
	Correct  int           `json:"correct"`
	Invalid  int           `json:"invalid"`
	Accuracy float64       `json:"accuracy"`
	Letters  []LetterStats `json:"letters"`
}

// Evaluate classifies every sample and tallies hits per expected letter.
// Samples the extractor rejects are counted as Invalid and excluded from
// accuracy.
func Evaluate(samples []LabeledSample) Report {
	var r Report
	byLetter := make(map[string]*LetterStats)

	for _, s := range samples {
		res, err := Classify(s.Points)
		if err != nil {
			r.Invalid++
			continue
		}

		st, ok := byLetter[s.Letter]
		if !ok {
			st = &LetterStats{Letter: s.Letter, Predicted: make(map[string]int)}
			byLetter[s.Letter] = st
		}
		st.Total++
		st.Predicted[res.Letter]++
		r.Total++
		if res.Letter == s.Letter {
			st.Correct++
			r.Correct++
		}
	}

	if r.Total > 0 {
		r.Accuracy = float64(r.Correct) / float64(r.Total)
	}
	for _, st := range byLetter {
		r.Letters = append(r.Letters, *st)
	}
	sort.Slice(r.Letters, func(i, j int) bool { return r.Letters[i].Letter < r.Letters[j].Letter })
	return r
}
