package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/signbridge/internal/asl"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/event"
	"github.com/ayusman/signbridge/internal/observe"
)

// ClassifyHandler classifies a single landmark set without touching the
// live session.
type ClassifyHandler struct {
	metrics *observe.Metrics
}

// NewClassifyHandler creates a ClassifyHandler. A nil metrics discards.
func NewClassifyHandler(m *observe.Metrics) *ClassifyHandler {
	if m == nil {
		m = observe.Discard()
	}
	return &ClassifyHandler{metrics: m}
}

type classifyResponse struct {
	Letter     string               `json:"letter"`
	Confidence int                  `json:"confidence"`
	Candidates []asl.Result         `json:"candidates"`
	Features   asl.Features         `json:"features"`
	Box        detector.BoundingBox `json:"box"`
}

// ServeHTTP handles POST /api/classify.
func (h *ClassifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req LandmarksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	points, err := req.ToPoints()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	features, err := asl.ExtractFeatures(points)
	if err != nil {
		if errors.Is(err, asl.ErrInvalidLandmarks) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to extract features")
		return
	}

	result := asl.ClassifyFeatures(features)
	candidates := asl.Candidates(features)
	if candidates == nil {
		candidates = []asl.Result{}
	}
	h.metrics.RecordClassification(r.Context(), result.Letter, event.SourceAPI, time.Since(start))

	writeJSON(w, http.StatusOK, classifyResponse{
		Letter:     result.Letter,
		Confidence: result.Confidence,
		Candidates: candidates,
		Features:   features,
		Box:        detector.Bounds(points),
	})
}
