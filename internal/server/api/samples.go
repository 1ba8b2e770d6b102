package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/signbridge/internal/asl"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/store"
)

// SamplesHandler handles recorded labelled landmark samples and the
// accuracy report computed from them.
type SamplesHandler struct {
	store *store.Store
}

// NewSamplesHandler creates a new SamplesHandler with the given store.
func NewSamplesHandler(s *store.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/samples, /api/samples/report, /api/samples/{id}
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/samples")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case path == "report":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.report(w, r)
	default:
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.delete(w, path)
	}
}

// Request types

type sampleInput struct {
	Letter string `json:"letter"`
	LandmarksRequest
}

type createSamplesRequest struct {
	sampleInput
	Samples []sampleInput `json:"samples"`
}

// Response types

type sampleResponse struct {
	ID        string             `json:"id"`
	Letter    string             `json:"letter"`
	Points    []detector.Point3D `json:"points"`
	CreatedAt string             `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

type createSamplesResponse struct {
	IDs []string `json:"ids"`
}

// validLetter reports whether l is a single upper-case letter A-Z.
func validLetter(l string) bool {
	return len(l) == 1 && l[0] >= 'A' && l[0] <= 'Z'
}

// list handles GET /api/samples[?letter=X]
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request) {
	letter := strings.ToUpper(r.URL.Query().Get("letter"))
	samples, err := h.store.Samples().List(letter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}

	for _, s := range samples {
		var points []detector.Point3D
		if err := json.Unmarshal(s.Points, &points); err != nil {
			writeError(w, http.StatusInternalServerError, "Corrupt sample "+s.ID)
			return
		}
		response.Samples = append(response.Samples, sampleResponse{
			ID:        s.ID,
			Letter:    s.Letter,
			Points:    points,
			CreatedAt: s.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/samples. The body is either a single sample
// ({"letter", "landmarks"}) or a batch under "samples".
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSamplesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	inputs := req.Samples
	if len(inputs) == 0 && req.Letter != "" {
		inputs = []sampleInput{req.sampleInput}
	}
	if len(inputs) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	samples := make([]*store.Sample, 0, len(inputs))
	ids := make([]string, 0, len(inputs))
	for i, in := range inputs {
		sample, err := toSample(in)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("sample %d: %v", i, err))
			return
		}
		samples = append(samples, sample)
		ids = append(ids, sample.ID)
	}

	if err := h.store.Samples().Create(samples...); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, createSamplesResponse{IDs: ids})
}

func toSample(in sampleInput) (*store.Sample, error) {
	letter := strings.ToUpper(in.Letter)
	if !validLetter(letter) {
		return nil, errors.New("letter must be A-Z")
	}
	points, err := in.ToPoints()
	if err != nil {
		return nil, err
	}
	if _, err := asl.ExtractFeatures(points); err != nil {
		return nil, err
	}
	data, err := json.Marshal(points)
	if err != nil {
		return nil, err
	}
	return &store.Sample{
		ID:     uuid.New().String(),
		Letter: letter,
		Points: data,
	}, nil
}

// report handles GET /api/samples/report and scores the rule table against
// every stored sample.
func (h *SamplesHandler) report(w http.ResponseWriter, r *http.Request) {
	samples, err := h.store.Samples().List("")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	labeled := make([]asl.LabeledSample, 0, len(samples))
	for _, s := range samples {
		var points []detector.Point3D
		if err := json.Unmarshal(s.Points, &points); err != nil {
			writeError(w, http.StatusInternalServerError, "Corrupt sample "+s.ID)
			return
		}
		labeled = append(labeled, asl.LabeledSample{Letter: s.Letter, Points: points})
	}

	writeJSON(w, http.StatusOK, asl.Evaluate(labeled))
}

// delete handles DELETE /api/samples/{id}
func (h *SamplesHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Samples().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sample not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete sample")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
