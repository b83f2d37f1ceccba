// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

// Package weight maps action kinds to interaction strengths.
//
// The scale is a business policy: only its order matters to the rest of the
// pipeline. A stronger action on a (user, event) pair replaces a weaker one,
// and a weaker or equal one is ignored.
package weight

import (
	"fmt"
)

// Policy assigns a strength to each action kind.
type Policy struct {
	View     float64 `koanf:"view"`
	Register float64 `koanf:"register"`
	Like     float64 `koanf:"like"`
}

// DefaultPolicy returns the production scale: VIEW 0.4, REGISTER 0.8, LIKE 1.0.
func DefaultPolicy() Policy {
	return Policy{
		View:     0.4,
		Register: 0.8,
		Like:     1.0,
	}
}

// Validate checks that every strength is positive and strictly ordered
// VIEW < REGISTER < LIKE.
func (p Policy) Validate() error {
	if p.View <= 0 {
		return fmt.Errorf("view weight must be positive, got %v", p.View)
	}
	if p.Register <= p.View {
		return fmt.Errorf("register weight (%v) must be greater than view weight (%v)", p.Register, p.View)
	}
	if p.Like <= p.Register {
		return fmt.Errorf("like weight (%v) must be greater than register weight (%v)", p.Like, p.Register)
	}
	return nil
}

// Strength returns the weight for kind. Unknown kinds fail with
// ErrUnknownActionKind instead of falling back to a default.
func (p Policy) Strength(kind ActionKind) (float64, error) {
	switch kind {
	case ActionView:
		return p.View, nil
	case ActionRegister:
		return p.Register, nil
	case ActionLike:
		return p.Like, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownActionKind, kind)
	}
}
