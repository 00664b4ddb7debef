package domain

import (
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestBroadcastableRequiresScoreAndDuration(t *testing.T) {
	cases := []struct {
		name     string
		score    *int
		duration *int
	}{
		{"no score", nil, intPtr(30)},
		{"no duration", intPtr(10), nil},
		{"neither", nil, nil},
		{"negative", intPtr(-1), intPtr(30)},
	}
	for _, tc := range cases {
		q := Question{ID: "q1", Score: tc.score, Duration: tc.duration}
		if _, err := q.Broadcastable(); !errors.Is(err, ErrIncompleteQuestion) {
			t.Fatalf("%s: expected ErrIncompleteQuestion, got %v", tc.name, err)
		}
	}

	bq, err := Question{ID: "q1", Score: intPtr(0), Duration: intPtr(0)}.Broadcastable()
	if err != nil {
		t.Fatalf("zero values are present and must be accepted: %v", err)
	}
	if bq.ScoreMax != 0 || bq.DurationSeconds != 0 {
		t.Fatalf("unexpected broadcast values %+v", bq)
	}
}

func TestPayloadStripsCorrectness(t *testing.T) {
	bq, err := Question{
		ID:       "q1",
		Text:     "Pick one",
		Score:    intPtr(10),
		Duration: intPtr(30),
		Options: []AnswerOption{
			{ID: "a", Text: "A", Correct: true},
			{ID: "b", Text: "B"},
		},
	}.Broadcastable()
	if err != nil {
		t.Fatalf("broadcastable: %v", err)
	}

	payload := bq.Payload()
	if payload.Question != "Pick one" || len(payload.Options) != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Options[0] != (BroadcastOption{OptionID: "a", OptionText: "A"}) {
		t.Fatalf("unexpected option %+v", payload.Options[0])
	}
}

func TestGroupStateExpiry(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	state := GroupState{Status: QAOpened, DurationSeconds: 30, StartTime: start}

	if state.Expired(start.Add(30 * time.Second)) {
		t.Fatalf("deadline itself is still inside the window")
	}
	if !state.Expired(start.Add(31 * time.Second)) {
		t.Fatalf("expected expiry after the window")
	}
	if got := state.EffectiveStatus(start.Add(time.Minute)); got != QAClosed {
		t.Fatalf("expected effective closed, got %s", got)
	}

	untimed := GroupState{Status: QAOpened, StartTime: start}
	if untimed.Expired(start.Add(24 * time.Hour)) {
		t.Fatalf("zero duration never expires")
	}

	closed := GroupState{Status: QAClosed, DurationSeconds: 1, StartTime: start}
	if closed.Expired(start.Add(time.Hour)) {
		t.Fatalf("only opened states expire")
	}
}

func TestPrincipalName(t *testing.T) {
	if got := (Principal{UserID: "u1", Email: "a@b.c"}).Name(); got != "a@b.c" {
		t.Fatalf("expected email, got %s", got)
	}
	if got := (Principal{UserID: "u1"}).Name(); got != "u1" {
		t.Fatalf("expected user id, got %s", got)
	}
	if got := SystemPrincipal.Name(); got != "system" {
		t.Fatalf("expected system, got %s", got)
	}
}

func TestValidateKeyIDs(t *testing.T) {
	if err := ValidateKeyIDs("G1", "P1", "S1", "Q1"); err != nil {
		t.Fatalf("plain ids rejected: %v", err)
	}
	if err := ValidateKeyIDs("G1", "X#S1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	key := ResponseKey{GroupID: "G1", ParticipantID: "P1", SessionID: "S1", QuestionID: "Q1"}
	if got := key.SortKey(); got != "P1#S1#Q1" {
		t.Fatalf("unexpected sort key %q", got)
	}
}
