package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/signbridge/internal/phrase"
	"github.com/ayusman/signbridge/internal/plugin"
	"github.com/ayusman/signbridge/internal/store"
)

// ActionRunner executes a bound action on demand.
type ActionRunner interface {
	RunAction(ctx context.Context, act *store.Action, trigger, text string) (*plugin.Response, error)
}

// ActionHandler serves the plugin bindings under /api/actions:
//
//	GET    /api/actions              list bindings
//	POST   /api/actions              bind a letter or phrase to a plugin action
//	GET    /api/actions/{id}         one binding
//	PUT    /api/actions/{id}         change fields that are present in the body
//	DELETE /api/actions/{id}         unbind
//	POST   /api/actions/{id}/trigger run the action now
type ActionHandler struct {
	store  *store.Store
	runner ActionRunner
	mux    *http.ServeMux
}

// NewActionHandler returns a handler over s. A nil runner leaves the trigger
// endpoint answering 503.
func NewActionHandler(s *store.Store, runner ActionRunner) *ActionHandler {
	h := &ActionHandler{store: s, runner: runner, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /api/actions", h.list)
	h.mux.HandleFunc("POST /api/actions", h.create)
	h.mux.HandleFunc("GET /api/actions/{id}", h.get)
	h.mux.HandleFunc("PUT /api/actions/{id}", h.update)
	h.mux.HandleFunc("DELETE /api/actions/{id}", h.delete)
	h.mux.HandleFunc("POST /api/actions/{id}/trigger", h.trigger)
	return h
}

func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// actionRequest is the body of create and update. Update leaves empty
// strings, a null config and a missing enabled flag untouched.
type actionRequest struct {
	Trigger    string          `json:"trigger"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config,omitempty"`
	Enabled    *bool           `json:"enabled,omitempty"`
}

type actionResponse struct {
	ID         string          `json:"id"`
	Trigger    string          `json:"trigger"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listActionsResponse struct {
	Actions []actionResponse `json:"actions"`
}

type triggerActionResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

var emptyConfig = json.RawMessage("{}")

func newActionResponse(a *store.Action) actionResponse {
	cfg := a.Config
	if len(cfg) == 0 {
		cfg = emptyConfig
	}
	return actionResponse{
		ID:         a.ID,
		Trigger:    a.Trigger,
		PluginName: a.PluginName,
		ActionName: a.ActionName,
		Config:     cfg,
		Enabled:    a.Enabled,
		CreatedAt:  a.CreatedAt.Format(timeFormat),
	}
}

// canonicalTrigger upper-cases a letter or phrase key and checks that it
// names something the classifier can produce.
func canonicalTrigger(raw string) (string, error) {
	if key, ok := strings.CutPrefix(raw, phrase.TriggerPrefix); ok {
		trigger := phrase.TriggerPrefix + strings.ToUpper(key)
		_, err := triggerText(trigger)
		return trigger, err
	}
	letter := strings.ToUpper(raw)
	if !validLetter(letter) {
		return "", errors.New("trigger must be a letter A-Z or phrase:<KEY>")
	}
	return letter, nil
}

// triggerText is what a plugin receives when trigger fires: the letter
// itself or the full phrase.
func triggerText(trigger string) (string, error) {
	key, ok := strings.CutPrefix(trigger, phrase.TriggerPrefix)
	if !ok {
		return trigger, nil
	}
	p, err := phrase.Lookup(key)
	if err != nil {
		return "", err
	}
	return p.Text, nil
}

func hasConfig(c json.RawMessage) bool {
	return len(c) > 0 && string(c) != "null"
}

// storeFailure writes the status for a repository error.
func storeFailure(w http.ResponseWriter, err error, failed string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Action not found")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, "Action already bound to this trigger")
	default:
		writeError(w, http.StatusInternalServerError, failed)
	}
}

// load fetches the action named by the {id} path value, writing the error
// response itself when that fails.
func (h *ActionHandler) load(w http.ResponseWriter, r *http.Request) (*store.Action, bool) {
	act, err := h.store.Actions().GetByID(r.PathValue("id"))
	if err != nil {
		storeFailure(w, err, "Failed to get action")
		return nil, false
	}
	return act, true
}

func (h *ActionHandler) list(w http.ResponseWriter, r *http.Request) {
	actions, err := h.store.Actions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}
	out := listActionsResponse{Actions: make([]actionResponse, len(actions))}
	for i, a := range actions {
		out.Actions[i] = newActionResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ActionHandler) get(w http.ResponseWriter, r *http.Request) {
	if act, ok := h.load(w, r); ok {
		writeJSON(w, http.StatusOK, newActionResponse(act))
	}
}

func (h *ActionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	for _, f := range []struct{ name, value string }{
		{"trigger", req.Trigger},
		{"plugin_name", req.PluginName},
		{"action_name", req.ActionName},
	} {
		if f.value == "" {
			writeError(w, http.StatusBadRequest, f.name+" is required")
			return
		}
	}

	trigger, err := canonicalTrigger(req.Trigger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	act := &store.Action{
		ID:         uuid.NewString(),
		Trigger:    trigger,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     emptyConfig,
		Enabled:    req.Enabled == nil || *req.Enabled,
	}
	if hasConfig(req.Config) {
		act.Config = req.Config
	}

	if err := h.store.Actions().Create(act); err != nil {
		storeFailure(w, err, "Failed to create action")
		return
	}
	writeJSON(w, http.StatusCreated, newActionResponse(act))
}

func (h *ActionHandler) update(w http.ResponseWriter, r *http.Request) {
	act, ok := h.load(w, r)
	if !ok {
		return
	}

	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Trigger != "" {
		trigger, err := canonicalTrigger(req.Trigger)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		act.Trigger = trigger
	}
	if req.PluginName != "" {
		act.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		act.ActionName = req.ActionName
	}
	if hasConfig(req.Config) {
		act.Config = req.Config
	}
	if req.Enabled != nil {
		act.Enabled = *req.Enabled
	}

	if err := h.store.Actions().Update(act); err != nil {
		storeFailure(w, err, "Failed to update action")
		return
	}
	writeJSON(w, http.StatusOK, newActionResponse(act))
}

func (h *ActionHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Actions().Delete(r.PathValue("id")); err != nil {
		storeFailure(w, err, "Failed to delete action")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// trigger runs the action the same way a recognised letter or phrase would.
// An optional {"text": ...} body replaces the text sent to the plugin.
func (h *ActionHandler) trigger(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "Plugins are not available")
		return
	}

	act, ok := h.load(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}
	text := req.Text
	if text == "" {
		var err error
		if text, err = triggerText(act.Trigger); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp, err := h.runner.RunAction(r.Context(), act, act.Trigger, text)
	switch {
	case errors.Is(err, plugin.ErrPluginNotFound), errors.Is(err, plugin.ErrUnknownAction):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		out := triggerActionResponse{Error: err.Error()}
		if resp != nil {
			out.Data = resp.Data
		}
		writeJSON(w, http.StatusBadGateway, out)
	default:
		writeJSON(w, http.StatusOK, triggerActionResponse{Success: true, Data: resp.Data})
	}
}
