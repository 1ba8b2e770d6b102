// Package main provides a keyboard plugin.
// It types recognized letters and phrases into the focused window with
// osascript (macOS) or xdotool (Linux).
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
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

// TypeConfig shapes the text before it is typed.
type TypeConfig struct {
	Lowercase   bool `json:"lowercase"`
	AppendSpace bool `json:"append_space"`
}

// KeyParams names a key and optional modifiers for the key action.
type KeyParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// modifiers maps user-facing modifier names to osascript and xdotool names.
var modifiers = map[string][2]string{
	"command": {"command down", "super"},
	"cmd":     {"command down", "super"},
	"option":  {"option down", "alt"},
	"alt":     {"option down", "alt"},
	"control": {"control down", "ctrl"},
	"ctrl":    {"control down", "ctrl"},
	"shift":   {"shift down", "shift"},
}

// macKeyCodes holds System Events key codes for named keys.
var macKeyCodes = map[string]int{
	"enter":     36,
	"tab":       48,
	"space":     49,
	"backspace": 51,
	"escape":    53,
}

var errNothingToType = errors.New("text is required")

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	argv, err := commandFor(runtime.GOOS, req)
	if err != nil {
		writeResponse(Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)})
		return
	}
	if out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput(); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("action %s failed: %v: %s", req.Action, err, strings.TrimSpace(string(out)))})
		return
	}

	data, _ := json.Marshal(map[string]string{"action": req.Action, "text": req.Text})
	writeResponse(Response{Success: true, Data: data})
}

// commandFor builds the command line that performs req on the given OS.
func commandFor(goos string, req Request) ([]string, error) {
	switch req.Action {
	case "type":
		var cfg TypeConfig
		if len(req.Config) > 0 {
			if err := json.Unmarshal(req.Config, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
		text, err := shapeText(req.Text, cfg)
		if err != nil {
			return nil, err
		}
		return typeCommand(goos, text)

	case "backspace", "enter":
		return keyCommand(goos, KeyParams{Key: req.Action})

	case "key":
		var p KeyParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &p); err != nil {
				return nil, fmt.Errorf("failed to parse params: %w", err)
			}
		}
		if p.Key == "" {
			return nil, errors.New("key is required")
		}
		return keyCommand(goos, p)

	default:
		return nil, fmt.Errorf("unknown action: %s", req.Action)
	}
}

// shapeText applies cfg to a recognized letter or phrase. The unknown marker
// is never typed.
func shapeText(text string, cfg TypeConfig) (string, error) {
	if text == "" || text == "?" {
		return "", errNothingToType
	}
	if cfg.Lowercase {
		text = strings.ToLower(text)
	}
	if cfg.AppendSpace {
		text += " "
	}
	return text, nil
}

func typeCommand(goos, text string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"osascript", "-e", fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, escapeAppleScript(text))}, nil
	case "linux":
		return []string{"xdotool", "type", "--", text}, nil
	default:
		return nil, fmt.Errorf("typing is not supported on %s", goos)
	}
}

func keyCommand(goos string, p KeyParams) ([]string, error) {
	key := strings.ToLower(p.Key)
	switch goos {
	case "darwin":
		var using []string
		for _, m := range p.Modifiers {
			if names, ok := modifiers[strings.ToLower(m)]; ok {
				using = append(using, names[0])
			}
		}
		stroke := fmt.Sprintf(`keystroke "%s"`, escapeAppleScript(p.Key))
		if code, ok := macKeyCodes[key]; ok {
			stroke = fmt.Sprintf("key code %d", code)
		}
		if len(using) > 0 {
			stroke += " using {" + strings.Join(using, ", ") + "}"
		}
		return []string{"osascript", "-e", `tell application "System Events" to ` + stroke}, nil

	case "linux":
		combo := []string{}
		for _, m := range p.Modifiers {
			if names, ok := modifiers[strings.ToLower(m)]; ok {
				combo = append(combo, names[1])
			}
		}
		switch key {
		case "enter":
			key = "Return"
		case "backspace":
			key = "BackSpace"
		case "escape":
			key = "Escape"
		case "tab":
			key = "Tab"
		}
		combo = append(combo, key)
		return []string{"xdotool", "key", strings.Join(combo, "+")}, nil

	default:
		return nil, fmt.Errorf("keys are not supported on %s", goos)
	}
}

// escapeAppleScript quotes backslashes and double quotes for a string literal.
func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
