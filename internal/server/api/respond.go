// Package api implements the JSON REST handlers mounted under /api.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ayusman/signbridge/internal/detector"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// maxBodyBytes bounds request bodies. A landmark set is well under 4 KiB.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// LandmarksRequest is the landmark payload accepted by the classify endpoint
// and the predictions websocket. Landmarks holds [x, y(, z)] tuples as
// emitted by browser hand-pose models; Points holds {x, y, z} objects.
// Landmarks wins when both are set.
type LandmarksRequest struct {
	Landmarks [][]float64        `json:"landmarks"`
	Points    []detector.Point3D `json:"points"`
}

// errNoLandmarks is returned when neither field is present.
var errNoLandmarks = errors.New("landmarks are required")

// Empty reports whether the payload carries no hand at all.
func (l LandmarksRequest) Empty() bool {
	return len(l.Landmarks) == 0 && len(l.Points) == 0
}

// ToPoints returns the payload as detector points.
func (l LandmarksRequest) ToPoints() ([]detector.Point3D, error) {
	if len(l.Landmarks) > 0 {
		return detector.PointsFromTuples(l.Landmarks)
	}
	if len(l.Points) > 0 {
		return l.Points, nil
	}
	return nil, errNoLandmarks
}

// ParseLandmarks decodes a LandmarksRequest from r.
func ParseLandmarks(r io.Reader) (LandmarksRequest, error) {
	var req LandmarksRequest
	err := json.NewDecoder(io.LimitReader(r, maxBodyBytes)).Decode(&req)
	return req, err
}
