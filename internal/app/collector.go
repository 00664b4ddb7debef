package app

import (
	"context"
	"errors"
	"fmt"

	"qa-live-service/internal/domain"
)

// SubmitAnswer scores a participant's selection for the group's open question and
// records it. Each participant gets exactly one response per broadcast question.
func (s *QAService) SubmitAnswer(ctx context.Context, actor domain.Principal, groupID, participantID string, selectedOptionIDs []string) (domain.ResponseLog, error) {
	if groupID == "" || participantID == "" {
		return domain.ResponseLog{}, fmt.Errorf("%w: group and participant ids are required", domain.ErrInvalidInput)
	}
	if err := domain.ValidateKeyIDs(groupID, participantID); err != nil {
		return domain.ResponseLog{}, err
	}

	state, err := s.openState(ctx, groupID)
	if err != nil {
		return domain.ResponseLog{}, err
	}

	participant, err := s.participants.Get(ctx, groupID, participantID)
	if err != nil {
		return domain.ResponseLog{}, err
	}
	if participant.Status == domain.StatusInactive {
		return domain.ResponseLog{}, fmt.Errorf("%w: %s", domain.ErrParticipantInactive, participantID)
	}

	question, err := s.questions.GetQuestion(ctx, state.QuestionID)
	if err != nil {
		return domain.ResponseLog{}, err
	}
	result, err := scoreSelection(question.ID, question.Options, selectedOptionIDs, state.ScoreMax)
	if err != nil {
		return domain.ResponseLog{}, err
	}

	// Eligibility is decided as late as possible: the question may have closed
	// or been replaced while the content was loading.
	latest, err := s.openState(ctx, groupID)
	if err != nil {
		return domain.ResponseLog{}, err
	}
	if latest.Version != state.Version {
		return domain.ResponseLog{}, fmt.Errorf("%w: question %s was replaced", domain.ErrNoActiveQuestion, state.QuestionID)
	}

	now := s.now()
	entry := domain.ResponseLog{
		ID:                  s.newID(),
		GroupID:             groupID,
		ParticipantID:       participantID,
		EntityID:            state.EntityID,
		SessionID:           state.SessionID,
		QuestionID:          state.QuestionID,
		UserID:              firstNonEmpty(actor.UserID, participant.UserID),
		Email:               firstNonEmpty(actor.Email, participant.Email),
		SelectedOptionIDs:   result.Selected,
		Score:               result.Score,
		ScoreMax:            state.ScoreMax,
		CorrectPercent:      result.CorrectPercent,
		ResponseTimeSeconds: now.Sub(state.StartTime).Seconds(),
		QARecord:            state.Payload,
		CreatedBy:           actor.Name(),
		CreatedAt:           now,
	}
	if err := s.insertResponse(ctx, entry); err != nil {
		return domain.ResponseLog{}, err
	}

	s.logger.Info("response recorded",
		"group_id", groupID, "participant_id", participantID, "question_id", entry.QuestionID,
		"score", entry.Score, "correct_percent", entry.CorrectPercent)
	s.addSessionScore(ctx, entry)
	return entry, nil
}

// ListResponses pages through a group's responses ordered by participant, session, question.
func (s *QAService) ListResponses(ctx context.Context, query domain.ResponseQuery) (domain.ResponsePage, error) {
	if query.GroupID == "" {
		return domain.ResponsePage{}, fmt.Errorf("%w: group id is required", domain.ErrInvalidInput)
	}
	query.Limit = clampLimit(query.Limit)
	return s.responses.List(ctx, query)
}

// ListSessionScores returns running totals of the group, optionally narrowed down.
func (s *QAService) ListSessionScores(ctx context.Context, groupID, participantID, sessionID string) ([]domain.SessionScore, error) {
	if groupID == "" {
		return nil, fmt.Errorf("%w: group id is required", domain.ErrInvalidInput)
	}
	return s.scores.List(ctx, groupID, participantID, sessionID)
}

func (s *QAService) openState(ctx context.Context, groupID string) (domain.GroupState, error) {
	state, err := s.groups.Get(ctx, groupID)
	if errors.Is(err, domain.ErrGroupNotFound) {
		return domain.GroupState{}, fmt.Errorf("%w: nothing was broadcast to group %s", domain.ErrNoActiveQuestion, groupID)
	}
	if err != nil {
		return domain.GroupState{}, err
	}
	if !state.AcceptingAnswers(s.now()) {
		return domain.GroupState{}, fmt.Errorf("%w: group %s is %s", domain.ErrNoActiveQuestion, groupID, state.EffectiveStatus(s.now()))
	}
	return state, nil
}

// insertResponse relies on the store's insert-if-absent for duplicate detection.
// Any other failure is retried once and then reported as a store conflict. A failed
// attempt may still have committed, so a duplicate on the retry is checked against
// the stored row before it is reported.
func (s *QAService) insertResponse(ctx context.Context, entry domain.ResponseLog) error {
	err := s.responses.Insert(ctx, entry)
	if err == nil || errors.Is(err, domain.ErrDuplicateResponse) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}
	s.logger.Warn("insert response, retrying", "group_id", entry.GroupID, "participant_id", entry.ParticipantID, "err", err)
	err = s.responses.Insert(ctx, entry)
	if errors.Is(err, domain.ErrDuplicateResponse) && s.storedEntry(ctx, entry) {
		return nil
	}
	if err == nil || errors.Is(err, domain.ErrDuplicateResponse) {
		return err
	}
	return fmt.Errorf("%w: insert response: %v", domain.ErrStoreConflict, err)
}

// storedEntry reports whether the response stored under entry's key is entry itself.
func (s *QAService) storedEntry(ctx context.Context, entry domain.ResponseLog) bool {
	page, err := s.responses.List(ctx, domain.ResponseQuery{
		GroupID:       entry.GroupID,
		ParticipantID: entry.ParticipantID,
		SessionID:     entry.SessionID,
		QuestionID:    entry.QuestionID,
		Limit:         1,
	})
	if err != nil {
		s.logger.Warn("read back response", "group_id", entry.GroupID, "participant_id", entry.ParticipantID, "err", err)
		return false
	}
	return len(page.Items) == 1 && page.Items[0].ID == entry.ID
}

func (s *QAService) addSessionScore(ctx context.Context, entry domain.ResponseLog) {
	if s.scores == nil {
		return
	}
	_, err := s.scores.Add(ctx, domain.SessionScore{
		GroupID:       entry.GroupID,
		ParticipantID: entry.ParticipantID,
		SessionID:     entry.SessionID,
		Score:         entry.Score,
		ScoreMax:      entry.ScoreMax,
		Responses:     1,
		ModifiedAt:    entry.CreatedAt,
	})
	if err != nil {
		s.logger.Error("update session score", "group_id", entry.GroupID, "participant_id", entry.ParticipantID, "session_id", entry.SessionID, "err", err)
	}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
