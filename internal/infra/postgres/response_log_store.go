package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"qa-live-service/internal/domain"
)

type responseRow struct {
	bun.BaseModel `bun:"table:response_logs"`

	GroupID       string             `bun:"group_id,pk"`
	SortKey       string             `bun:"sort_key,pk"`
	ParticipantID string             `bun:"participant_id"`
	SessionID     string             `bun:"session_id"`
	QuestionID    string             `bun:"question_id"`
	Data          domain.ResponseLog `bun:"data,type:jsonb"`
	CreatedAt     time.Time          `bun:"created_at"`
}

// ResponseLogStore relies on the (group_id, sort_key) primary key for duplicate detection.
type ResponseLogStore struct {
	db *bun.DB
}

func NewResponseLogStore(db *bun.DB) *ResponseLogStore {
	return &ResponseLogStore{db: db}
}

func (s *ResponseLogStore) Insert(ctx context.Context, entry domain.ResponseLog) error {
	key := entry.Key()
	row := responseRow{
		GroupID:       key.GroupID,
		SortKey:       key.SortKey(),
		ParticipantID: key.ParticipantID,
		SessionID:     key.SessionID,
		QuestionID:    key.QuestionID,
		Data:          entry,
		CreatedAt:     entry.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: participant %s, question %s", domain.ErrDuplicateResponse, key.ParticipantID, key.QuestionID)
		}
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (s *ResponseLogStore) List(ctx context.Context, query domain.ResponseQuery) (domain.ResponsePage, error) {
	var rows []responseRow
	q := s.db.NewSelect().Model(&rows).
		Where("group_id = ?", query.GroupID).
		Order("sort_key ASC")
	if query.ParticipantID != "" {
		q = q.Where("participant_id = ?", query.ParticipantID)
	}
	if query.SessionID != "" {
		q = q.Where("session_id = ?", query.SessionID)
	}
	if query.QuestionID != "" {
		q = q.Where("question_id = ?", query.QuestionID)
	}
	if query.Cursor != "" {
		q = q.Where("sort_key > ?", query.Cursor)
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit + 1)
	}
	if err := q.Scan(ctx); err != nil {
		return domain.ResponsePage{}, fmt.Errorf("list responses: %w", err)
	}

	page := domain.ResponsePage{Items: make([]domain.ResponseLog, 0, len(rows))}
	if query.Limit > 0 && len(rows) > query.Limit {
		rows = rows[:query.Limit]
		page.NextCursor = rows[len(rows)-1].SortKey
	}
	for _, row := range rows {
		page.Items = append(page.Items, row.Data)
	}
	return page, nil
}
