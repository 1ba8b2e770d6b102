package asl

import "strings"

// Transcript is the accumulated text of a session. It is a value; callers
// own it and replace it with the reducers below.
type Transcript struct {
	LastLetter string `json:"last_letter"`
	Text       string `json:"text"`
}

// Append adds letter unless it repeats the previous one. Holding a pose across
// several ticks therefore yields a single character; a letter repeated after a
// different one is appended again.
func Append(t Transcript, letter string) Transcript {
	if letter == "" || letter == t.LastLetter {
		return t
	}
	return Transcript{LastLetter: letter, Text: t.Text + letter}
}

// AppendPhrase adds a whole phrase, space separated from existing text, and
// clears LastLetter so the next letter is always accepted.
func AppendPhrase(t Transcript, phrase string) Transcript {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return t
	}
	text := t.Text
	if text != "" && !strings.HasSuffix(text, " ") {
		text += " "
	}
	return Transcript{Text: text + phrase}
}

// Clear returns the empty transcript.
func Clear() Transcript {
	return Transcript{}
}
