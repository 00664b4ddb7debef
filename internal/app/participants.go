package app

import (
	"context"
	"fmt"

	"qa-live-service/internal/domain"
)

// RegisterParticipant adds a user to a group's roster or refreshes their record.
func (s *QAService) RegisterParticipant(ctx context.Context, actor domain.Principal, participant domain.Participant) (domain.Participant, error) {
	if participant.GroupID == "" || participant.ParticipantID == "" {
		return domain.Participant{}, fmt.Errorf("%w: group and participant ids are required", domain.ErrInvalidInput)
	}
	if err := domain.ValidateKeyIDs(participant.GroupID, participant.ParticipantID); err != nil {
		return domain.Participant{}, err
	}
	if participant.Status == "" {
		participant.Status = domain.StatusActive
	}
	if !participant.Status.Valid() {
		return domain.Participant{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, participant.Status)
	}
	now := s.now()
	participant.CreatedAt = now
	participant.ModifiedAt = now
	participant.ModifiedBy = actor.Name()
	return s.participants.Upsert(ctx, participant)
}

// SetParticipantStatus activates or deactivates a member without touching the user.
func (s *QAService) SetParticipantStatus(ctx context.Context, actor domain.Principal, groupID, participantID string, status domain.Status) (domain.Participant, error) {
	if !status.Valid() {
		return domain.Participant{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	participant, err := s.participants.Get(ctx, groupID, participantID)
	if err != nil {
		return domain.Participant{}, err
	}
	participant.Status = status
	participant.ModifiedAt = s.now()
	participant.ModifiedBy = actor.Name()
	return s.participants.Upsert(ctx, participant)
}

// ListParticipants returns the group's roster ordered by participant id.
func (s *QAService) ListParticipants(ctx context.Context, groupID string) ([]domain.Participant, error) {
	return s.participants.List(ctx, groupID)
}
