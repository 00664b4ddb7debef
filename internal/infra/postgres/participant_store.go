package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"qa-live-service/internal/domain"
)

type participantRow struct {
	bun.BaseModel `bun:"table:participants"`

	GroupID       string    `bun:"group_id,pk"`
	ParticipantID string    `bun:"participant_id,pk"`
	UserID        string    `bun:"user_id"`
	Email         string    `bun:"email"`
	Status        string    `bun:"status"`
	CreatedAt     time.Time `bun:"created_at"`
	ModifiedAt    time.Time `bun:"modified_at"`
	ModifiedBy    string    `bun:"modified_by"`
}

type ParticipantStore struct {
	db bun.IDB
}

func NewParticipantStore(db bun.IDB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

func (s *ParticipantStore) Get(ctx context.Context, groupID, participantID string) (domain.Participant, error) {
	var row participantRow
	err := s.db.NewSelect().Model(&row).
		Where("group_id = ?", groupID).
		Where("participant_id = ?", participantID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, fmt.Errorf("%w: %s", domain.ErrParticipantNotFound, participantID)
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return row.participant(), nil
}

// Upsert keeps created_at of an existing row; RETURNING reads it back.
func (s *ParticipantStore) Upsert(ctx context.Context, participant domain.Participant) (domain.Participant, error) {
	row := participantRow{
		GroupID:       participant.GroupID,
		ParticipantID: participant.ParticipantID,
		UserID:        participant.UserID,
		Email:         participant.Email,
		Status:        string(participant.Status),
		CreatedAt:     participant.CreatedAt,
		ModifiedAt:    participant.ModifiedAt,
		ModifiedBy:    participant.ModifiedBy,
	}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (group_id, participant_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("email = EXCLUDED.email").
		Set("status = EXCLUDED.status").
		Set("modified_at = EXCLUDED.modified_at").
		Set("modified_by = EXCLUDED.modified_by").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("upsert participant: %w", err)
	}
	return row.participant(), nil
}

func (s *ParticipantStore) List(ctx context.Context, groupID string) ([]domain.Participant, error) {
	var rows []participantRow
	err := s.db.NewSelect().Model(&rows).
		Where("group_id = ?", groupID).
		Order("participant_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	out := make([]domain.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.participant())
	}
	return out, nil
}

func (r participantRow) participant() domain.Participant {
	return domain.Participant{
		GroupID:       r.GroupID,
		ParticipantID: r.ParticipantID,
		UserID:        r.UserID,
		Email:         r.Email,
		Status:        domain.Status(r.Status),
		CreatedAt:     r.CreatedAt,
		ModifiedAt:    r.ModifiedAt,
		ModifiedBy:    r.ModifiedBy,
	}
}
