package memory

import (
	"context"
	"sort"
	"sync"

	"qa-live-service/internal/domain"
)

type scoreKey struct {
	groupID, participantID, sessionID string
}

// SessionScoreStore keeps running session totals in memory.
type SessionScoreStore struct {
	mu     sync.Mutex
	totals map[scoreKey]domain.SessionScore
}

func NewSessionScoreStore() *SessionScoreStore {
	return &SessionScoreStore{totals: make(map[scoreKey]domain.SessionScore)}
}

func (s *SessionScoreStore) Add(_ context.Context, delta domain.SessionScore) (domain.SessionScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := scoreKey{delta.GroupID, delta.ParticipantID, delta.SessionID}
	total, ok := s.totals[key]
	if !ok {
		total = domain.SessionScore{GroupID: delta.GroupID, ParticipantID: delta.ParticipantID, SessionID: delta.SessionID}
	}
	total.Score += delta.Score
	total.ScoreMax += delta.ScoreMax
	total.Responses += delta.Responses
	total.ModifiedAt = delta.ModifiedAt
	s.totals[key] = total
	return total, nil
}

func (s *SessionScoreStore) List(_ context.Context, groupID, participantID, sessionID string) ([]domain.SessionScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SessionScore, 0)
	for key, total := range s.totals {
		if key.groupID != groupID {
			continue
		}
		if participantID != "" && key.participantID != participantID {
			continue
		}
		if sessionID != "" && key.sessionID != sessionID {
			continue
		}
		out = append(out, total)
	}
	sortScores(out)
	return out, nil
}

func sortScores(scores []domain.SessionScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].ParticipantID != scores[j].ParticipantID {
			return scores[i].ParticipantID < scores[j].ParticipantID
		}
		return scores[i].SessionID < scores[j].SessionID
	})
}
