// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package weight

import (
	"errors"
	"testing"
)

func TestDefaultPolicy_Strength(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	tests := []struct {
		kind ActionKind
		want float64
	}{
		{ActionView, 0.4},
		{ActionRegister, 0.8},
		{ActionLike, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()
			got, err := p.Strength(tt.kind)
			if err != nil {
				t.Fatalf("Strength(%s) error: %v", tt.kind, err)
			}
			if got != tt.want {
				t.Errorf("Strength(%s) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestPolicy_StrengthIsOrdered(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	prev := 0.0
	for _, kind := range Kinds {
		w, err := p.Strength(kind)
		if err != nil {
			t.Fatalf("Strength(%s) error: %v", kind, err)
		}
		if w <= prev {
			t.Errorf("Strength(%s) = %v, not greater than previous %v", kind, w, prev)
		}
		prev = w
	}
}

func TestPolicy_StrengthUnknownKind(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	for _, kind := range []ActionKind{0, 4, 255} {
		if _, err := p.Strength(kind); !errors.Is(err, ErrUnknownActionKind) {
			t.Errorf("Strength(%d) error = %v, want ErrUnknownActionKind", kind, err)
		}
	}
}

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"default", DefaultPolicy(), false},
		{"custom ordered", Policy{View: 1, Register: 2, Like: 5}, false},
		{"zero view", Policy{View: 0, Register: 0.8, Like: 1}, true},
		{"negative view", Policy{View: -1, Register: 0.8, Like: 1}, true},
		{"register equals view", Policy{View: 0.4, Register: 0.4, Like: 1}, true},
		{"like below register", Policy{View: 0.4, Register: 0.8, Like: 0.6}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseActionKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    ActionKind
		wantErr bool
	}{
		{"VIEW", ActionView, false},
		{"view", ActionView, false},
		{" Register ", ActionRegister, false},
		{"ACTION_LIKE", ActionLike, false},
		{"SHARE", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseActionKind(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownActionKind) {
					t.Errorf("ParseActionKind(%q) error = %v, want ErrUnknownActionKind", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseActionKind(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseActionKind(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestActionKind_TextRoundTrip(t *testing.T) {
	t.Parallel()

	for _, kind := range Kinds {
		text, err := kind.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%s) error: %v", kind, err)
		}
		var got ActionKind
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) error: %v", text, err)
		}
		if got != kind {
			t.Errorf("round trip %s -> %s", kind, got)
		}
	}

	if _, err := ActionKind(0).MarshalText(); !errors.Is(err, ErrUnknownActionKind) {
		t.Errorf("MarshalText(0) error = %v, want ErrUnknownActionKind", err)
	}
}
