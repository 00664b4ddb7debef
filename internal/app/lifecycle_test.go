package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"qa-live-service/internal/domain"
)

func TestOpenQuestionBuildsBroadcast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.service.OpenQuestion(ctx, host, "G1", "Q1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if state.Status != domain.QAOpened || state.ScoreMax != 10 || state.DurationSeconds != 30 {
		t.Fatalf("unexpected state %+v", state)
	}
	if !state.StartTime.Equal(f.clock.Now()) || state.ModifiedBy != "host@example.com" || state.SessionID != "S1" {
		t.Fatalf("unexpected stamps %+v", state)
	}

	stored, err := f.service.CurrentState(ctx, "G1")
	if err != nil {
		t.Fatalf("current state: %v", err)
	}
	want := f.questions["Q1"].Options
	if len(stored.Payload.Options) != len(want) {
		t.Fatalf("expected %d options, got %d", len(want), len(stored.Payload.Options))
	}
	for i, opt := range stored.Payload.Options {
		if opt.OptionID != want[i].ID || opt.OptionText != want[i].Text {
			t.Fatalf("option %d mismatch: %+v vs %+v", i, opt, want[i])
		}
	}
}

func TestOpenQuestionValidationWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		groupID, questionID string
		want                error
	}{
		{"G1", "Q-noscore", domain.ErrIncompleteQuestion},
		{"G1", "Q-noduration", domain.ErrIncompleteQuestion},
		{"G1", "Q-inactive", domain.ErrQuestionInactive},
		{"G1", "missing", domain.ErrQuestionNotFound},
		{"G2", "Q1", domain.ErrQuestionNotFound},
		{"", "Q1", domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		if _, err := f.service.OpenQuestion(ctx, host, tc.groupID, tc.questionID); !errors.Is(err, tc.want) {
			t.Fatalf("open %s/%s: expected %v, got %v", tc.groupID, tc.questionID, tc.want, err)
		}
	}
	if _, err := f.service.CurrentState(ctx, "G1"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Fatalf("expected no state after failed opens, got %v", err)
	}
}

func TestOpenQuestionReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _ := f.service.OpenQuestion(ctx, host, "G1", "Q1")
	second, err := f.service.OpenQuestion(ctx, host, "G1", "Q2")
	if err != nil {
		t.Fatalf("open Q2: %v", err)
	}
	if second.QuestionID != "Q2" || second.Version <= first.Version {
		t.Fatalf("expected Q2 to replace Q1, got %+v", second)
	}
}

func TestOpenQuestionAtChecksVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.OpenQuestionAt(ctx, host, "G1", "Q1", 0)
	if err != nil {
		t.Fatalf("open at 0: %v", err)
	}
	if _, err := f.service.OpenQuestionAt(ctx, host, "G1", "Q2", 0); !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}
	if _, err := f.service.OpenQuestionAt(ctx, host, "G1", "Q2", first.Version); err != nil {
		t.Fatalf("open at current version: %v", err)
	}
	if _, err := f.service.OpenQuestionAt(ctx, host, "G1", "Q2", -4); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.service.OpenQuestion(ctx, host, "G1", "Q1")

	first, err := f.service.CloseQuestion(ctx, host, "G1")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := f.service.CloseQuestion(ctx, host, "G1")
	if err != nil {
		t.Fatalf("close again: %v", err)
	}
	if first.Status != domain.QAClosed || second.Status != domain.QAClosed {
		t.Fatalf("expected closed twice, got %s and %s", first.Status, second.Status)
	}
	if second.Version != first.Version {
		t.Fatalf("second close should not write, versions %d and %d", first.Version, second.Version)
	}
	if second.QuestionID != "Q1" || len(second.Payload.Options) != 3 {
		t.Fatalf("close should keep the question in place, got %+v", second)
	}
}

func TestCloseUnknownGroup(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.CloseQuestion(context.Background(), host, "nope"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestClearTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.service.OpenQuestion(ctx, host, "G1", "Q1")

	if _, err := f.service.ClearQuestion(ctx, host, "G1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition while opened, got %v", err)
	}

	// An expired broadcast counts as closed and can be cleared directly.
	f.clock.Advance(31 * time.Second)
	cleared, err := f.service.ClearQuestion(ctx, host, "G1")
	if err != nil {
		t.Fatalf("clear expired: %v", err)
	}
	if cleared.Status != domain.QACleared {
		t.Fatalf("expected cleared, got %s", cleared.Status)
	}
	again, err := f.service.ClearQuestion(ctx, host, "G1")
	if err != nil || again.Version != cleared.Version {
		t.Fatalf("second clear should be a no-op, got %+v, %v", again, err)
	}
	closed, err := f.service.CloseQuestion(ctx, host, "G1")
	if err != nil || closed.Status != domain.QACleared {
		t.Fatalf("close after clear should be a no-op, got %+v, %v", closed, err)
	}
}

func TestCurrentStateReportsExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.service.OpenQuestion(ctx, host, "G1", "Q1")

	f.clock.Advance(30 * time.Second)
	state, _ := f.service.CurrentState(ctx, "G1")
	if state.Status != domain.QAOpened {
		t.Fatalf("expected opened at the deadline, got %s", state.Status)
	}
	f.clock.Advance(time.Second)
	state, _ = f.service.CurrentState(ctx, "G1")
	if state.Status != domain.QAClosed {
		t.Fatalf("expected closed after the deadline, got %s", state.Status)
	}
}
