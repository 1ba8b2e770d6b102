// Package main provides a text-to-speech plugin.
// It reads the recognized letter or phrase aloud with say (macOS) or
// espeak (Linux).
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Trigger string          `json:"trigger"`
	Text    string          `json:"text"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SpeakConfig tunes the voice. Zero values use the engine defaults.
type SpeakConfig struct {
	Voice string `json:"voice"`
	Rate  int    `json:"rate"` // words per minute
}

// actionHandler defines a function type for handling specific actions.
type actionHandler func(req Request, cfg SpeakConfig) error

// actionHandlers maps action names to their handler functions.
var actionHandlers = map[string]actionHandler{
	"speak": speak,
	"spell": spell,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	var cfg SpeakConfig
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	if err := handler(req, cfg); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse()
}

// speak reads the request text aloud.
func speak(req Request, cfg SpeakConfig) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return errors.New("text is required")
	}
	return say(text, cfg)
}

// spell reads the text one character at a time.
func spell(req Request, cfg SpeakConfig) error {
	text, err := spellOut(req.Text)
	if err != nil {
		return err
	}
	return say(text, cfg)
}

// spellOut separates the letters of text with commas so the engine pauses
// between them. Spaces and the unknown marker are skipped.
func spellOut(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("text is required")
	}
	letters := make([]string, 0, len(text))
	for _, r := range text {
		if r == ' ' || r == '?' {
			continue
		}
		letters = append(letters, string(r))
	}
	if len(letters) == 0 {
		return "", errors.New("nothing to spell")
	}
	return strings.Join(letters, ", "), nil
}

// speechCommand builds the argv that speaks text on goos.
func speechCommand(goos, text string, cfg SpeakConfig) ([]string, error) {
	var argv []string
	switch goos {
	case "darwin":
		argv = []string{"say"}
		if cfg.Voice != "" {
			argv = append(argv, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			argv = append(argv, "-r", strconv.Itoa(cfg.Rate))
		}
	case "linux":
		argv = []string{"espeak"}
		if cfg.Voice != "" {
			argv = append(argv, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			argv = append(argv, "-s", strconv.Itoa(cfg.Rate))
		}
	default:
		return nil, fmt.Errorf("speech is not supported on %s", goos)
	}
	// Text after "--" is never read as a flag.
	return append(argv, "--", text), nil
}

// say runs the platform speech command.
func say(text string, cfg SpeakConfig) error {
	argv, err := speechCommand(runtime.GOOS, text, cfg)
	if err != nil {
		return err
	}
	output, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	resp := Response{
		Success: true,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
