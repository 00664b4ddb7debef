package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"qa-live-service/internal/domain"
	"qa-live-service/internal/infra/memory"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID        string          `bun:"id,pk"`
	EntityID  string          `bun:"entity_id"`
	GroupID   string          `bun:"group_id"`
	SessionID string          `bun:"session_id"`
	Data      domain.Question `bun:"data,type:jsonb"`
	UpdatedAt time.Time       `bun:"updated_at"`
}

// SeedResult counts the rows written by SeedContent.
type SeedResult struct {
	Questions    int
	Participants int
}

// SeedContent upserts the questions and rosters of a content file in one transaction.
// Existing participants keep their created_at.
func SeedContent(ctx context.Context, db *bun.DB, content memory.Content, actor domain.Principal, now time.Time) (SeedResult, error) {
	var result SeedResult
	questions := content.Questions()
	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, questionRow{
			ID:        q.ID,
			EntityID:  q.EntityID,
			GroupID:   q.GroupID,
			SessionID: q.SessionID,
			Data:      q,
			UpdatedAt: now,
		})
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(rows) > 0 {
			_, err := tx.NewInsert().Model(&rows).
				On("CONFLICT (id) DO UPDATE").
				Set("entity_id = EXCLUDED.entity_id").
				Set("group_id = EXCLUDED.group_id").
				Set("session_id = EXCLUDED.session_id").
				Set("data = EXCLUDED.data").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("seed questions: %w", err)
			}
			result.Questions = len(rows)
		}

		participants := NewParticipantStore(tx)
		for _, p := range content.Participants() {
			if p.Status == "" {
				p.Status = domain.StatusActive
			}
			p.CreatedAt = now
			p.ModifiedAt = now
			p.ModifiedBy = actor.Name()
			if _, err := participants.Upsert(ctx, p); err != nil {
				return err
			}
			result.Participants++
		}
		return nil
	})
	return result, err
}
