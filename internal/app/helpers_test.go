package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"qa-live-service/internal/domain"
	"qa-live-service/internal/infra/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	service   *QAService
	clock     *fakeClock
	groups    *memory.GroupStateStore
	responses *memory.ResponseLogStore
	scores    *memory.SessionScoreStore
	hub       *memory.Hub
	questions map[string]domain.Question
}

var host = domain.Principal{UserID: "host-1", Email: "host@example.com"}

func intPtr(v int) *int { return &v }

// newFixture builds a service over memory stores. Group G1 has participants P1, P2
// (active) and P3 (inactive).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:     &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)},
		groups:    memory.NewGroupStateStore(),
		responses: memory.NewResponseLogStore(),
		scores:    memory.NewSessionScoreStore(),
		hub:       memory.NewHub(),
		questions: map[string]domain.Question{
			"Q1": {
				ID: "Q1", EntityID: "E1", GroupID: "G1", SessionID: "S1",
				Text: "Pick A", Score: intPtr(10), Duration: intPtr(30), Status: domain.StatusActive,
				Options: []domain.AnswerOption{{ID: "A", Text: "A", Correct: true}, {ID: "B", Text: "B"}, {ID: "C", Text: "C"}},
			},
			"Q2": {
				ID: "Q2", EntityID: "E1", GroupID: "G1", SessionID: "S1",
				Text: "Pick the primes", Score: intPtr(9), Duration: intPtr(0), Status: domain.StatusActive,
				Options: []domain.AnswerOption{
					{ID: "2", Text: "2", Correct: true},
					{ID: "3", Text: "3", Correct: true},
					{ID: "4", Text: "4"},
					{ID: "5", Text: "5", Correct: true},
				},
			},
			"Q-noscore": {
				ID: "Q-noscore", GroupID: "G1", SessionID: "S1", Text: "Draft", Duration: intPtr(30),
				Options: []domain.AnswerOption{{ID: "A", Correct: true}},
			},
			"Q-noduration": {
				ID: "Q-noduration", GroupID: "G1", SessionID: "S1", Text: "Draft", Score: intPtr(5),
				Options: []domain.AnswerOption{{ID: "A", Correct: true}},
			},
			"Q-inactive": {
				ID: "Q-inactive", GroupID: "G1", SessionID: "S1", Text: "Retired", Score: intPtr(5), Duration: intPtr(30),
				Status: domain.StatusInactive, Options: []domain.AnswerOption{{ID: "A", Correct: true}},
			},
			"Q-nocorrect": {
				ID: "Q-nocorrect", GroupID: "G1", SessionID: "S1", Text: "Broken", Score: intPtr(5), Duration: intPtr(30),
				Options: []domain.AnswerOption{{ID: "A"}, {ID: "B"}},
			},
		},
	}
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(f.questions), time.Minute)
	f.service = NewQAService(Stores{
		Groups:       f.groups,
		Responses:    f.responses,
		Participants: memory.NewParticipantStore(),
		Scores:       f.scores,
	}, questions, f.hub, WithClock(f.clock.Now))

	for _, p := range []domain.Participant{
		{GroupID: "G1", ParticipantID: "P1", UserID: "u1", Email: "p1@example.com"},
		{GroupID: "G1", ParticipantID: "P2", UserID: "u2", Email: "p2@example.com"},
		{GroupID: "G1", ParticipantID: "P3", UserID: "u3", Status: domain.StatusInactive},
	} {
		if _, err := f.service.RegisterParticipant(context.Background(), host, p); err != nil {
			t.Fatalf("register %s: %v", p.ParticipantID, err)
		}
	}
	return f
}
