package main

import (
	"reflect"
	"testing"
)

func TestSpeechCommand(t *testing.T) {
	tests := []struct {
		name string
		goos string
		cfg  SpeakConfig
		want []string
	}{
		{"mac default voice", "darwin", SpeakConfig{}, []string{"say", "--", "I need water"}},
		{"mac voice and rate", "darwin", SpeakConfig{Voice: "Samantha", Rate: 180}, []string{"say", "-v", "Samantha", "-r", "180", "--", "I need water"}},
		{"linux rate", "linux", SpeakConfig{Rate: 140}, []string{"espeak", "-s", "140", "--", "I need water"}},
		{"linux voice", "linux", SpeakConfig{Voice: "en-us"}, []string{"espeak", "-v", "en-us", "--", "I need water"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := speechCommand(tt.goos, "I need water", tt.cfg)
			if err != nil {
				t.Fatalf("speechCommand() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("speechCommand() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := speechCommand("windows", "hi", SpeakConfig{}); err == nil {
		t.Error("expected an error on an unsupported platform")
	}
}

func TestSpellOut(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"ABC", "A, B, C", false},
		{" HI THERE ", "H, I, T, H, E, R, E", false},
		{"A?B", "A, B", false},
		{"??", "", true},
		{"   ", "", true},
	}
	for _, tt := range tests {
		got, err := spellOut(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("spellOut(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("spellOut(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
