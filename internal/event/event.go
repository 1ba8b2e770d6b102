// Package event defines the messages signbridge fans out to websocket
// clients, the message bus and the tray.
package event

import (
	"time"

	"github.com/ayusman/signbridge/internal/asl"
	"github.com/ayusman/signbridge/internal/detector"
)

// Kind names an event type. It doubles as the bus subject suffix.
type Kind string

const (
	// KindLetter is a classified letter.
	KindLetter Kind = "letter"
	// KindStatus reports pipeline state such as "no hand detected".
	KindStatus Kind = "status"
	// KindTranscript carries the whole transcript after a phrase, speech
	// update or clear.
	KindTranscript Kind = "transcript"
	// KindPractice carries practice drill progress.
	KindPractice Kind = "practice"
)

// Source identifies where landmarks or text came from.
const (
	SourceCamera  = "camera"
	SourceBrowser = "browser"
	SourceAPI     = "api"
	SourceSpeech  = "speech"
)

// Status values for KindStatus events.
const (
	StatusNoHand        = "no_hand"
	StatusDetectorError = "detector_error"
	StatusEnabled       = "enabled"
	StatusDisabled      = "disabled"
	StatusInvalidInput  = "invalid_input"
)

// NoHandMessage is shown when the detector finds nothing to classify.
const NoHandMessage = "No hand detected - Please ensure your hand is clearly visible in the camera"

// Event is one fan-out message. Fields irrelevant to Kind are omitted.
type Event struct {
	Kind   Kind      `json:"kind"`
	Time   time.Time `json:"time"`
	Source string    `json:"source,omitempty"`

	Letter     string                `json:"letter,omitempty"`
	Confidence int                   `json:"confidence,omitempty"`
	Candidates []asl.Result          `json:"candidates,omitempty"`
	Box        *detector.BoundingBox `json:"box,omitempty"`

	Transcript *asl.Transcript    `json:"transcript,omitempty"`
	Practice   *asl.PracticeState `json:"practice,omitempty"`
	Correct    bool               `json:"correct,omitempty"`

	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}
