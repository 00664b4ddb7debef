package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"qa-live-service/internal/domain"
)

func TestGroupStateStoreVersions(t *testing.T) {
	store := NewGroupStateStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "g1"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}

	first, err := store.Put(ctx, domain.GroupState{GroupID: "g1", Status: domain.QAOpened}, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("expected version 1, got %d", first.Version)
	}
	if _, err := store.Put(ctx, domain.GroupState{GroupID: "g1"}, 0); !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("expected conflict on create-if-absent, got %v", err)
	}
	if _, err := store.Put(ctx, domain.GroupState{GroupID: "g1", Status: domain.QAClosed}, 5); !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("expected conflict on stale version, got %v", err)
	}
	second, err := store.Put(ctx, domain.GroupState{GroupID: "g1", Status: domain.QAClosed}, 1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	third, err := store.Put(ctx, domain.GroupState{GroupID: "g1", Status: domain.QAOpened}, domain.AnyVersion)
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	if second.Version != 2 || third.Version != 3 {
		t.Fatalf("unexpected versions %d, %d", second.Version, third.Version)
	}

	opened, err := store.ListByStatus(ctx, domain.QAOpened)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(opened) != 1 || opened[0].GroupID != "g1" {
		t.Fatalf("unexpected opened states %+v", opened)
	}
}

func TestResponseLogStoreRejectsDuplicates(t *testing.T) {
	store := NewResponseLogStore()
	ctx := context.Background()
	entry := domain.ResponseLog{GroupID: "g1", ParticipantID: "p1", SessionID: "s1", QuestionID: "q1"}

	if err := store.Insert(ctx, entry); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, entry); !errors.Is(err, domain.ErrDuplicateResponse) {
		t.Fatalf("expected ErrDuplicateResponse, got %v", err)
	}
}

func TestResponseLogStorePaginates(t *testing.T) {
	store := NewResponseLogStore()
	ctx := context.Background()
	for _, p := range []string{"p3", "p1", "p2"} {
		for _, q := range []string{"q1", "q2"} {
			err := store.Insert(ctx, domain.ResponseLog{GroupID: "g1", ParticipantID: p, SessionID: "s1", QuestionID: q})
			if err != nil {
				t.Fatalf("insert %s/%s: %v", p, q, err)
			}
		}
	}

	page, err := store.List(ctx, domain.ResponseQuery{GroupID: "g1", QuestionID: "q2", Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].ParticipantID != "p1" || page.Items[1].ParticipantID != "p2" {
		t.Fatalf("unexpected first page %+v", page.Items)
	}
	if page.NextCursor == "" {
		t.Fatalf("expected next cursor")
	}

	page, err = store.List(ctx, domain.ResponseQuery{GroupID: "g1", QuestionID: "q2", Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ParticipantID != "p3" || page.NextCursor != "" {
		t.Fatalf("unexpected second page %+v cursor %q", page.Items, page.NextCursor)
	}

	page, err = store.List(ctx, domain.ResponseQuery{GroupID: "g1", ParticipantID: "p2", Limit: 10})
	if err != nil {
		t.Fatalf("list by participant: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 responses for p2, got %d", len(page.Items))
	}
}

func TestParticipantStoreKeepsCreatedAt(t *testing.T) {
	store := NewParticipantStore()
	ctx := context.Background()
	created := time.Unix(1_700_000_000, 0)

	if _, err := store.Upsert(ctx, domain.Participant{GroupID: "g1", ParticipantID: "p1", Status: domain.StatusActive, CreatedAt: created}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	updated, err := store.Upsert(ctx, domain.Participant{GroupID: "g1", ParticipantID: "p1", Status: domain.StatusInactive, CreatedAt: created.Add(time.Hour)})
	if err != nil {
		t.Fatalf("upsert 2: %v", err)
	}
	if !updated.CreatedAt.Equal(created) || updated.Status != domain.StatusInactive {
		t.Fatalf("unexpected participant %+v", updated)
	}
	if _, err := store.Get(ctx, "g2", "p1"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestSessionScoreStoreAccumulates(t *testing.T) {
	store := NewSessionScoreStore()
	ctx := context.Background()
	delta := domain.SessionScore{GroupID: "g1", ParticipantID: "p1", SessionID: "s1", Score: 6.5, ScoreMax: 10, Responses: 1}
	if _, err := store.Add(ctx, delta); err != nil {
		t.Fatalf("add: %v", err)
	}
	total, err := store.Add(ctx, delta)
	if err != nil {
		t.Fatalf("add 2: %v", err)
	}
	if total.Score != 13 || total.ScoreMax != 20 || total.Responses != 2 {
		t.Fatalf("unexpected total %+v", total)
	}
	if _, err := store.Add(ctx, domain.SessionScore{GroupID: "g1", ParticipantID: "p2", SessionID: "s1", Score: 1, ScoreMax: 10, Responses: 1}); err != nil {
		t.Fatalf("add p2: %v", err)
	}

	all, _ := store.List(ctx, "g1", "", "")
	if len(all) != 2 || all[0].ParticipantID != "p1" {
		t.Fatalf("unexpected scores %+v", all)
	}
	mine, _ := store.List(ctx, "g1", "p2", "s1")
	if len(mine) != 1 || mine[0].Score != 1 {
		t.Fatalf("unexpected filtered scores %+v", mine)
	}
}

func TestHubDropsOldestForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	ch, cancel, err := hub.Subscribe(ctx, "g1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	for v := int64(1); v <= subscriberBuffer+3; v++ {
		if err := hub.Publish(ctx, domain.GroupState{GroupID: "g1", Version: v}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	// other groups are not delivered
	_ = hub.Publish(ctx, domain.GroupState{GroupID: "g2", Version: 99})

	var last int64
	for i := 0; i < subscriberBuffer; i++ {
		state := <-ch
		if state.GroupID != "g1" {
			t.Fatalf("unexpected group %s", state.GroupID)
		}
		last = state.Version
	}
	if last != subscriberBuffer+3 {
		t.Fatalf("expected newest version last, got %d", last)
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}
	if hub.Subscribers("g1") != 0 {
		t.Fatalf("expected no subscribers after cancel")
	}
}

func TestParseContentFillsParents(t *testing.T) {
	content, err := ParseContent([]byte(`
entities:
  - id: e1
    groups:
      - id: g1
        participants:
          - id: p1
            email: p1@example.com
            status: active
        sessions:
          - id: s1
            questions:
              - id: q1
                text: Pick one
                score: 10
                duration: 30
                options:
                  - id: a
                    text: A
                    correct: true
                  - id: b
                    text: B
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q, ok := content.Questions()["q1"]
	if !ok {
		t.Fatalf("expected question q1")
	}
	if q.EntityID != "e1" || q.GroupID != "g1" || q.SessionID != "s1" || q.Order != 1 {
		t.Fatalf("unexpected parents %+v", q)
	}
	if q.Score == nil || *q.Score != 10 || len(q.Options) != 2 || !q.Options[0].Correct {
		t.Fatalf("unexpected question body %+v", q)
	}
	participants := content.Participants()
	if len(participants) != 1 || participants[0].GroupID != "g1" || participants[0].ParticipantID != "p1" {
		t.Fatalf("unexpected participants %+v", participants)
	}
}

func TestParseContentRejectsSeparatorInIDs(t *testing.T) {
	docs := map[string]string{
		"participant": "entities:\n  - id: e1\n    groups:\n      - id: g1\n        participants:\n          - id: \"x#s1\"\n",
		"session":     "entities:\n  - id: e1\n    groups:\n      - id: g1\n        sessions:\n          - id: \"s#1\"\n",
		"question":    "entities:\n  - id: e1\n    groups:\n      - id: g1\n        sessions:\n          - id: s1\n            questions:\n              - id: \"s1#q9\"\n",
		"group":       "entities:\n  - id: e1\n    groups:\n      - id: \"g#1\"\n",
	}
	for name, doc := range docs {
		if _, err := ParseContent([]byte(doc)); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}
