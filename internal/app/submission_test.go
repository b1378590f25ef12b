package app

import (
	"strings"
	"testing"
)

func TestValidateContestantName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Анна", "Анна", true},
		{"  Мария Иванова  ", "Мария Иванова", true},
		{"Anna-Maria 2", "Anna-Maria 2", true},
		{"Ян", "Ян", true},
		{"Я", "", false},
		{"", "", false},
		{"   ", "", false},
		{strings.Repeat("а", 51), "", false},
		{strings.Repeat("а", 50), strings.Repeat("а", 50), true},
		{"Анна!", "", false},
		{"name@channel", "", false},
		{"имя_с_подчеркиванием", "", false},
	}
	for _, tt := range tests {
		got, ok, reason := validateContestantName(tt.in)
		if ok != tt.ok {
			t.Fatalf("validateContestantName(%q) ok = %v; want %v (reason %q)", tt.in, ok, tt.ok, reason)
		}
		if ok && got != tt.want {
			t.Fatalf("validateContestantName(%q) = %q; want %q", tt.in, got, tt.want)
		}
		if !ok && reason == "" {
			t.Fatalf("validateContestantName(%q) rejected without reason", tt.in)
		}
	}
}

func TestParseCallbackID(t *testing.T) {
	tests := []struct {
		data   string
		prefix string
		id     uint
		ok     bool
	}{
		{"vote_12", "vote_", 12, true},
		{"accept_suggestion_3", "accept_suggestion_", 3, true},
		{"vote_", "vote_", 0, false},
		{"vote_abc", "vote_", 0, false},
		{"vote_0", "vote_", 0, false},
		{"vote_-5", "vote_", 0, false},
		{"delete_participant_7", "vote_", 0, false},
	}
	for _, tt := range tests {
		id, ok := parseCallbackID(tt.data, tt.prefix)
		if id != tt.id || ok != tt.ok {
			t.Fatalf("parseCallbackID(%q, %q) = %d,%v; want %d,%v", tt.data, tt.prefix, id, ok, tt.id, tt.ok)
		}
	}
}
