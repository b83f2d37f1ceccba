// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package weight

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownActionKind is returned for an action kind outside the closed set.
// Consumers treat it as fatal to the single message only.
var ErrUnknownActionKind = errors.New("unknown action kind")

// ActionKind is the kind of interaction a user had with an event.
// The zero value is not a valid kind.
type ActionKind uint8

const (
	// ActionView is a user opening the event page.
	ActionView ActionKind = iota + 1
	// ActionRegister is a user registering for the event.
	ActionRegister
	// ActionLike is a user liking the event.
	ActionLike
)

// Kinds lists every valid action kind from weakest to strongest.
var Kinds = []ActionKind{ActionView, ActionRegister, ActionLike}

// String returns the wire name of the kind.
func (k ActionKind) String() string {
	switch k {
	case ActionView:
		return "VIEW"
	case ActionRegister:
		return "REGISTER"
	case ActionLike:
		return "LIKE"
	default:
		return fmt.Sprintf("ActionKind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionView, ActionRegister, ActionLike:
		return true
	default:
		return false
	}
}

// ParseActionKind converts a wire name (case-insensitive) to an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VIEW", "ACTION_VIEW":
		return ActionView, nil
	case "REGISTER", "ACTION_REGISTER":
		return ActionRegister, nil
	case "LIKE", "ACTION_LIKE":
		return ActionLike, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownActionKind, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ActionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownActionKind, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ActionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
