// Package phrase holds the quick-communication phrases that can be sent
// without fingerspelling them.
package phrase

import (
	"errors"
	"strings"
)

// ErrUnknownPhrase is returned for a key outside the catalogue.
var ErrUnknownPhrase = errors.New("unknown phrase")

// TriggerPrefix marks an action trigger that names a phrase.
const TriggerPrefix = "phrase:"

// Phrase is one catalogue entry.
type Phrase struct {
	Key  string `json:"key"`
	Text string `json:"text"`
	Icon string `json:"icon"`
}

var catalogue = []Phrase{
	{Key: "HELP", Text: "I need immediate assistance", Icon: "🆘"},
	{Key: "PAIN", Text: "I am in pain", Icon: "🤕"},
	{Key: "WATER", Text: "I need water", Icon: "💧"},
	{Key: "BATHROOM", Text: "I need to use the bathroom", Icon: "🚽"},
	{Key: "MEDICINE", Text: "I need my medicine", Icon: "💊"},
	{Key: "TIRED", Text: "I am tired", Icon: "😴"},
}

// All returns the catalogue in display order.
func All() []Phrase {
	out := make([]Phrase, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup finds a phrase by key, ignoring case.
func Lookup(key string) (Phrase, error) {
	for _, p := range catalogue {
		if strings.EqualFold(p.Key, key) {
			return p, nil
		}
	}
	return Phrase{}, ErrUnknownPhrase
}

// Trigger is the action-binding name for a phrase, e.g. "phrase:HELP".
func (p Phrase) Trigger() string {
	return TriggerPrefix + p.Key
}
