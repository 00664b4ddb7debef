package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qa-live-service/internal/domain"
)

// OpenQuestion broadcasts a question to the group. Any previous state of the group
// is replaced; concurrent opens resolve last-writer-wins.
func (s *QAService) OpenQuestion(ctx context.Context, actor domain.Principal, groupID, questionID string) (domain.GroupState, error) {
	return s.open(ctx, actor, groupID, questionID, AnyVersion)
}

// OpenQuestionAt is OpenQuestion guarded by the version the caller last saw
// (0 when the group had no state). A stale version yields domain.ErrStoreConflict.
func (s *QAService) OpenQuestionAt(ctx context.Context, actor domain.Principal, groupID, questionID string, expectedVersion int64) (domain.GroupState, error) {
	if expectedVersion < 0 {
		return domain.GroupState{}, fmt.Errorf("%w: negative expected version", domain.ErrInvalidInput)
	}
	return s.open(ctx, actor, groupID, questionID, expectedVersion)
}

func (s *QAService) open(ctx context.Context, actor domain.Principal, groupID, questionID string, expectedVersion int64) (domain.GroupState, error) {
	if groupID == "" || questionID == "" {
		return domain.GroupState{}, fmt.Errorf("%w: group and question ids are required", domain.ErrInvalidInput)
	}
	if err := domain.ValidateKeyIDs(groupID, questionID); err != nil {
		return domain.GroupState{}, err
	}

	question, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.GroupState{}, err
	}
	if question.GroupID != "" && question.GroupID != groupID {
		return domain.GroupState{}, fmt.Errorf("%w: question %s does not belong to group %s", domain.ErrQuestionNotFound, questionID, groupID)
	}
	if err := domain.ValidateKeyIDs(question.SessionID, question.ID); err != nil {
		return domain.GroupState{}, err
	}
	if !question.Active() {
		return domain.GroupState{}, fmt.Errorf("%w: %s", domain.ErrQuestionInactive, questionID)
	}
	broadcast, err := question.Broadcastable()
	if err != nil {
		return domain.GroupState{}, err
	}

	now := s.now()
	state := domain.GroupState{
		GroupID:         groupID,
		Status:          domain.QAOpened,
		EntityID:        question.EntityID,
		SessionID:       question.SessionID,
		QuestionID:      question.ID,
		Payload:         broadcast.Payload(),
		ScoreMax:        broadcast.ScoreMax,
		DurationSeconds: broadcast.DurationSeconds,
		StartTime:       now,
		ModifiedBy:      actor.Name(),
		ModifiedAt:      now,
	}
	stored, err := s.groups.Put(ctx, state, expectedVersion)
	if err != nil {
		return domain.GroupState{}, fmt.Errorf("open question %s in group %s: %w", questionID, groupID, err)
	}

	s.logger.Info("question opened",
		"group_id", groupID, "question_id", questionID, "version", stored.Version, "by", stored.ModifiedBy)
	s.publish(ctx, stored)
	return stored, nil
}

// CloseQuestion stops accepting answers. The question and payload stay in place so
// clients can keep showing what just closed. Closing a closed or cleared state is a no-op.
func (s *QAService) CloseQuestion(ctx context.Context, actor domain.Principal, groupID string) (domain.GroupState, error) {
	return s.transition(ctx, actor, groupID, "closed", func(cur domain.GroupState, _ time.Time) (domain.GroupState, bool, error) {
		if cur.Status != domain.QAOpened {
			return cur, false, nil
		}
		cur.Status = domain.QAClosed
		return cur, true, nil
	})
}

// ClearQuestion dismisses a closed question; participants reset to "no active question".
// An opened question must be closed (or have expired) first.
func (s *QAService) ClearQuestion(ctx context.Context, actor domain.Principal, groupID string) (domain.GroupState, error) {
	return s.transition(ctx, actor, groupID, "cleared", func(cur domain.GroupState, now time.Time) (domain.GroupState, bool, error) {
		switch cur.EffectiveStatus(now) {
		case domain.QACleared:
			return cur, false, nil
		case domain.QAOpened:
			return cur, false, fmt.Errorf("%w: question %s is still open in group %s", domain.ErrInvalidTransition, cur.QuestionID, cur.GroupID)
		}
		cur.Status = domain.QACleared
		return cur, true, nil
	})
}

type transitionFunc func(cur domain.GroupState, now time.Time) (next domain.GroupState, changed bool, err error)

// transition is a read-compare-write on the state version, retried once on conflict.
func (s *QAService) transition(ctx context.Context, actor domain.Principal, groupID, verb string, next transitionFunc) (domain.GroupState, error) {
	var (
		result  domain.GroupState
		written bool
	)
	err := retryOnConflict(ctx, func() error {
		cur, err := s.groups.Get(ctx, groupID)
		if err != nil {
			return err
		}
		now := s.now()
		updated, changed, err := next(cur, now)
		if err != nil {
			return err
		}
		if !changed {
			result, written = cur, false
			return nil
		}
		updated.ModifiedBy = actor.Name()
		updated.ModifiedAt = now
		stored, err := s.groups.Put(ctx, updated, cur.Version)
		if err != nil {
			return err
		}
		result, written = stored, true
		return nil
	})
	if err != nil {
		return domain.GroupState{}, err
	}
	if written {
		s.logger.Info("question "+verb,
			"group_id", groupID, "question_id", result.QuestionID, "version", result.Version, "by", result.ModifiedBy)
		s.publish(ctx, result)
	}
	return result, nil
}

func retryOnConflict(ctx context.Context, fn func() error) error {
	err := fn()
	if errors.Is(err, domain.ErrStoreConflict) && ctx.Err() == nil {
		err = fn()
	}
	return err
}
