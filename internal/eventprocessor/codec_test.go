// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package eventprocessor

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/eventsim/internal/models"
	"github.com/tomtom215/eventsim/internal/weight"
)

func TestActionCodec_RoundTrip(t *testing.T) {
	in := &models.Action{
		UserID:    7,
		EventID:   42,
		Kind:      weight.ActionRegister,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 123, time.FixedZone("X", 3600)),
	}

	data, err := EncodeAction(in)
	if err != nil {
		t.Fatalf("EncodeAction() error: %v", err)
	}
	out, err := DecodeAction(data)
	if err != nil {
		t.Fatalf("DecodeAction() error: %v", err)
	}
	if out.UserID != in.UserID || out.EventID != in.EventID || out.Kind != in.Kind || !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestDecodeAction_Errors(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantPoison  bool
		wantUnknown bool
	}{
		{"malformed json", `{"user_id":`, true, false},
		{"unknown kind", `{"user_id":1,"event_id":2,"action_kind":"SHARE"}`, false, true},
		{"missing kind", `{"user_id":1,"event_id":2}`, false, true},
		{"zero user", `{"user_id":0,"event_id":2,"action_kind":"VIEW"}`, true, false},
		{"negative event", `{"user_id":1,"event_id":-2,"action_kind":"LIKE"}`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAction([]byte(tt.payload))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrPoisonMessage); got != tt.wantPoison {
				t.Errorf("errors.Is(ErrPoisonMessage) = %v, want %v (err: %v)", got, tt.wantPoison, err)
			}
			if got := errors.Is(err, weight.ErrUnknownActionKind); got != tt.wantUnknown {
				t.Errorf("errors.Is(ErrUnknownActionKind) = %v, want %v (err: %v)", got, tt.wantUnknown, err)
			}
		})
	}
}

func TestDecodeAction_AcceptsEnumStyleKinds(t *testing.T) {
	a, err := DecodeAction([]byte(`{"user_id":1,"event_id":2,"action_kind":"ACTION_LIKE","timestamp":"2026-03-01T12:00:00Z"}`))
	if err != nil {
		t.Fatalf("DecodeAction() error: %v", err)
	}
	if a.Kind != weight.ActionLike {
		t.Errorf("Kind = %v, want LIKE", a.Kind)
	}
}

func TestSimilarityCodec_Canonicalizes(t *testing.T) {
	in := models.Similarity{EventLow: 9, EventHigh: 3, Score: 0.5, Timestamp: time.Unix(100, 0)}

	data, err := EncodeSimilarity(in)
	if err != nil {
		t.Fatalf("EncodeSimilarity() error: %v", err)
	}
	out, err := DecodeSimilarity(data)
	if err != nil {
		t.Fatalf("DecodeSimilarity() error: %v", err)
	}
	if out.EventLow != 3 || out.EventHigh != 9 || out.Score != 0.5 {
		t.Errorf("decoded = %+v", out)
	}

	if _, err := DecodeSimilarity([]byte(`{"event_low":4,"event_high":4,"score":1}`)); !errors.Is(err, ErrPoisonMessage) {
		t.Errorf("self pair error = %v, want ErrPoisonMessage", err)
	}
	if _, err := EncodeSimilarity(models.Similarity{EventLow: 0, EventHigh: 1}); err == nil {
		t.Error("expected error encoding invalid pair")
	}
}

func TestSkipReason(t *testing.T) {
	if got := SkipReason(weight.ErrUnknownActionKind); got != "unknown_kind" {
		t.Errorf("SkipReason(unknown kind) = %q", got)
	}
	if got := SkipReason(ErrPoisonMessage); got != "decode" {
		t.Errorf("SkipReason(poison) = %q", got)
	}
	if got := SkipReason(errors.New("x")); got != "handler" {
		t.Errorf("SkipReason(other) = %q", got)
	}
}

func TestPartitioning(t *testing.T) {
	a := &models.Action{UserID: 1, EventID: 77, Kind: weight.ActionView}
	b := &models.Action{UserID: 2, EventID: 77, Kind: weight.ActionLike}
	if ActionPartition(a, 8) != ActionPartition(b, 8) {
		t.Error("actions on the same event must share a partition")
	}
	for i := int64(1); i < 200; i++ {
		p := ActionPartition(&models.Action{EventID: i}, 8)
		if p < 0 || p >= 8 {
			t.Fatalf("partition %d out of range", p)
		}
	}
	if ActionPartition(a, 1) != 0 || ActionPartition(a, 0) != 0 {
		t.Error("single partition must be 0")
	}

	s1 := models.Similarity{EventLow: 3, EventHigh: 9}
	s2 := models.Similarity{EventLow: 9, EventHigh: 3}
	if SimilarityPartition(s1, 8) != SimilarityPartition(s2, 8) {
		t.Error("both orderings of a pair must share a partition")
	}

	s1.Score, s2.Score = 0.5, 0.25
	if SimilarityMessageID(s1) == SimilarityMessageID(s2.Canonical()) {
		t.Error("different scores for a pair must not share a message ID")
	}
}
