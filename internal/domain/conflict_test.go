package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSeverityForDelta(t *testing.T) {
	cases := []struct {
		delta float32
		want  ConflictSeverity
	}{
		{0, SeverityLow},
		{0.19, SeverityLow},
		{0.2, SeverityMedium},
		{0.49, SeverityMedium},
		{0.5, SeverityHigh},
		{0.9, SeverityHigh},
		{-0.4, SeverityMedium}, // sign is irrelevant
	}

	for _, tc := range cases {
		if got := SeverityForDelta(tc.delta); got != tc.want {
			t.Errorf("SeverityForDelta(%v) = %s, want %s", tc.delta, got, tc.want)
		}
	}
}

func TestBeliefConflict_Validate(t *testing.T) {
	c := BeliefConflict{}
	if err := c.Validate(); err == nil {
		t.Error("expected error for conflict with no opposing side")
	}

	memID := uuid.New()
	c.MemoryID = &memID
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBeliefConflict_MarkResolved(t *testing.T) {
	c := BeliefConflict{}
	now := time.Now()

	c.MarkResolved(ResolutionTakeNew, "superseded", 1.4, now)

	if !c.Resolved {
		t.Error("expected resolved flag")
	}
	if c.ResolvedAt == nil || !c.ResolvedAt.Equal(now) {
		t.Error("expected resolved_at to be set")
	}
	if c.Resolution != ResolutionTakeNew {
		t.Errorf("resolution = %s, want TAKE_NEW", c.Resolution)
	}
	if c.ResolutionConfidence != 1.0 {
		t.Errorf("resolution confidence = %v, want clamp to 1.0", c.ResolutionConfidence)
	}
}

func TestValidConflictResolution(t *testing.T) {
	for _, r := range []string{"TAKE_NEW", "KEEP_OLD", "MARK_UNCERTAIN", "REQUIRE_MANUAL_REVIEW", "MERGE", "ARCHIVE_OLD"} {
		if !ValidConflictResolution(r) {
			t.Errorf("expected %s to be valid", r)
		}
	}
	if ValidConflictResolution("DELETE_BOTH") {
		t.Error("expected DELETE_BOTH to be invalid")
	}
	if ValidConflictResolution("") {
		t.Error("expected empty resolution to be invalid")
	}
}
