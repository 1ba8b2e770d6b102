package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/asl"
	"github.com/ayusman/signbridge/internal/event"
	"github.com/ayusman/signbridge/internal/phrase"
	"github.com/ayusman/signbridge/internal/store"
)

// TranscriptHandler exposes the live transcripts of each modality.
type TranscriptHandler struct {
	app *app.App
}

// NewTranscriptHandler creates a TranscriptHandler.
func NewTranscriptHandler(a *app.App) *TranscriptHandler {
	return &TranscriptHandler{app: a}
}

type transcriptResponse struct {
	Transcript asl.Transcript `json:"transcript"`
	Speech     string         `json:"speech"`
}

type speechRequest struct {
	Text string `json:"text"`
}

// ServeHTTP routes /api/transcript and /api/transcript/{modality}.
func (h *TranscriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/transcript")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.get(w)
		case http.MethodDelete:
			h.app.ClearTranscript(r.Context())
			h.get(w)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch store.Modality(path) {
	case store.ModalitySpeech:
		if r.Method != http.MethodPut {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.putSpeech(w, r)
	case store.ModalityLip:
		writeError(w, http.StatusNotImplemented, "Lip reading is not available")
	default:
		writeError(w, http.StatusNotFound, "Unknown modality")
	}
}

func (h *TranscriptHandler) get(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, transcriptResponse{
		Transcript: h.app.Transcript(),
		Speech:     h.app.Speech(),
	})
}

func (h *TranscriptHandler) putSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.app.SetSpeech(r.Context(), req.Text); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save speech transcript")
		return
	}
	h.get(w)
}

// PredictionHandler returns the most recent letter while a hand is in view.
type PredictionHandler struct {
	app *app.App
}

// NewPredictionHandler creates a PredictionHandler.
func NewPredictionHandler(a *app.App) *PredictionHandler {
	return &PredictionHandler{app: a}
}

// ServeHTTP handles GET /api/prediction.
func (h *PredictionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ev, ok := h.app.Last()
	if !ok {
		writeJSON(w, http.StatusOK, event.Event{
			Kind:    event.KindStatus,
			Status:  event.StatusNoHand,
			Message: event.NoHandMessage,
		})
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// PhraseHandler lists and triggers emergency phrases.
type PhraseHandler struct {
	app *app.App
}

// NewPhraseHandler creates a PhraseHandler.
func NewPhraseHandler(a *app.App) *PhraseHandler {
	return &PhraseHandler{app: a}
}

type phrasesResponse struct {
	Phrases []phrase.Phrase `json:"phrases"`
}

type triggerPhraseResponse struct {
	Phrase     phrase.Phrase  `json:"phrase"`
	Transcript asl.Transcript `json:"transcript"`
}

// ServeHTTP routes /api/phrases and /api/phrases/{key}.
func (h *PhraseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/phrases")
	key = strings.TrimPrefix(key, "/")

	if key == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, phrasesResponse{Phrases: phrase.All()})
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, tr, err := h.app.TriggerPhrase(r.Context(), key)
	if err != nil {
		if errors.Is(err, phrase.ErrUnknownPhrase) {
			writeError(w, http.StatusNotFound, "Phrase not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to trigger phrase")
		return
	}
	writeJSON(w, http.StatusOK, triggerPhraseResponse{Phrase: p, Transcript: tr})
}

// PracticeHandler starts, inspects and stops practice drills.
type PracticeHandler struct {
	app *app.App
}

// NewPracticeHandler creates a PracticeHandler.
func NewPracticeHandler(a *app.App) *PracticeHandler {
	return &PracticeHandler{app: a}
}

type startPracticeRequest struct {
	Level string `json:"level"`
}

// ServeHTTP handles GET, POST and DELETE on /api/practice.
func (h *PracticeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.app.Practice())
	case http.MethodPost:
		var req startPracticeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		st, err := h.app.StartPractice(r.Context(), req.Level)
		if err != nil {
			if errors.Is(err, asl.ErrUnknownLevel) {
				writeError(w, http.StatusBadRequest, "Unknown level")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to start practice")
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodDelete:
		writeJSON(w, http.StatusOK, h.app.StopPractice(r.Context()))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// DetectionHandler reads and flips the detection toggle.
type DetectionHandler struct {
	app *app.App
}

// NewDetectionHandler creates a DetectionHandler.
func NewDetectionHandler(a *app.App) *DetectionHandler {
	return &DetectionHandler{app: a}
}

type detectionState struct {
	Enabled *bool `json:"enabled"`
}

// ServeHTTP handles GET and PUT on /api/detection.
func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req detectionState
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		h.app.SetEnabled(r.Context(), *req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	enabled := h.app.IsEnabled()
	writeJSON(w, http.StatusOK, detectionState{Enabled: &enabled})
}
