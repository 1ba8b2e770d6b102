package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/signbridge/internal/asl"
)

// ReferenceHandler serves the static tables:
//
//	GET /api/rules            letter rules in evaluation order
//	GET /api/rules/{letter}   one rule
//	GET /api/tips             hand-shape tips
//	GET /api/tips/{letter}    one tip
//	GET /api/levels           practice levels
type ReferenceHandler struct {
	mux *http.ServeMux
}

// NewReferenceHandler creates a ReferenceHandler.
func NewReferenceHandler() *ReferenceHandler {
	h := &ReferenceHandler{mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /api/rules", h.rules)
	h.mux.HandleFunc("GET /api/rules/{letter}", h.rule)
	h.mux.HandleFunc("GET /api/tips", h.tips)
	h.mux.HandleFunc("GET /api/tips/{letter}", h.tip)
	h.mux.HandleFunc("GET /api/levels", h.levels)
	return h
}

func (h *ReferenceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type rulesResponse struct {
	Rules []asl.Rule `json:"rules"`
}

type tipsResponse struct {
	Tips []asl.Tip `json:"tips"`
}

type levelsResponse struct {
	Levels []asl.Level `json:"levels"`
}

func (h *ReferenceHandler) rules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rulesResponse{Rules: asl.Rules()})
}

func (h *ReferenceHandler) rule(w http.ResponseWriter, r *http.Request) {
	rule, ok := asl.RuleFor(strings.ToUpper(r.PathValue("letter")))
	if !ok {
		writeError(w, http.StatusNotFound, "No rule for letter")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *ReferenceHandler) tips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tipsResponse{Tips: asl.Tips()})
}

func (h *ReferenceHandler) tip(w http.ResponseWriter, r *http.Request) {
	tip, ok := asl.TipFor(strings.ToUpper(r.PathValue("letter")))
	if !ok {
		writeError(w, http.StatusNotFound, "No tip for letter")
		return
	}
	writeJSON(w, http.StatusOK, tip)
}

func (h *ReferenceHandler) levels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, levelsResponse{Levels: asl.Levels()})
}
