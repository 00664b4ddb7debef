package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"qa-live-service/internal/domain"
)

type sessionScoreRow struct {
	bun.BaseModel `bun:"table:session_scores"`

	GroupID       string    `bun:"group_id,pk"`
	ParticipantID string    `bun:"participant_id,pk"`
	SessionID     string    `bun:"session_id,pk"`
	Score         float64   `bun:"score"`
	ScoreMax      int       `bun:"score_max"`
	Responses     int       `bun:"responses"`
	ModifiedAt    time.Time `bun:"modified_at"`
}

type SessionScoreStore struct {
	db *bun.DB
}

func NewSessionScoreStore(db *bun.DB) *SessionScoreStore {
	return &SessionScoreStore{db: db}
}

func (s *SessionScoreStore) Add(ctx context.Context, delta domain.SessionScore) (domain.SessionScore, error) {
	total := delta
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO session_scores (group_id, participant_id, session_id, score, score_max, responses, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (group_id, participant_id, session_id) DO UPDATE SET
			score = session_scores.score + EXCLUDED.score,
			score_max = session_scores.score_max + EXCLUDED.score_max,
			responses = session_scores.responses + EXCLUDED.responses,
			modified_at = EXCLUDED.modified_at
		RETURNING score, score_max, responses`,
		delta.GroupID, delta.ParticipantID, delta.SessionID,
		delta.Score, delta.ScoreMax, delta.Responses, delta.ModifiedAt,
	).Scan(&total.Score, &total.ScoreMax, &total.Responses)
	if err != nil {
		return domain.SessionScore{}, fmt.Errorf("add session score: %w", err)
	}
	return total, nil
}

func (s *SessionScoreStore) List(ctx context.Context, groupID, participantID, sessionID string) ([]domain.SessionScore, error) {
	var rows []sessionScoreRow
	q := s.db.NewSelect().Model(&rows).
		Where("group_id = ?", groupID).
		Order("participant_id ASC", "session_id ASC")
	if participantID != "" {
		q = q.Where("participant_id = ?", participantID)
	}
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list session scores: %w", err)
	}
	out := make([]domain.SessionScore, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.SessionScore{
			GroupID:       row.GroupID,
			ParticipantID: row.ParticipantID,
			SessionID:     row.SessionID,
			Score:         row.Score,
			ScoreMax:      row.ScoreMax,
			Responses:     row.Responses,
			ModifiedAt:    row.ModifiedAt,
		})
	}
	return out, nil
}
