package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"qa-live-service/internal/domain"
)

// AnyVersion disables the version check of GroupStateRepository.Put.
const AnyVersion = domain.AnyVersion

// GroupStateRepository stores one live-question record per group.
type GroupStateRepository interface {
	// Get returns domain.ErrGroupNotFound when nothing was written for the group.
	Get(ctx context.Context, groupID string) (domain.GroupState, error)
	// Put fully overwrites the group's state, creating it if absent. expectedVersion
	// AnyVersion writes unconditionally, 0 requires that no state exists, anything else
	// must equal the stored version. A failed check returns domain.ErrStoreConflict.
	// The returned state carries the new version.
	Put(ctx context.Context, state domain.GroupState, expectedVersion int64) (domain.GroupState, error)
	// ListByStatus returns the stored states with the given (stored, not effective) status.
	ListByStatus(ctx context.Context, status domain.QAStatus) ([]domain.GroupState, error)
}

// ResponseLogRepository stores immutable responses.
type ResponseLogRepository interface {
	// Insert writes the response if its key is unused, else returns domain.ErrDuplicateResponse.
	Insert(ctx context.Context, entry domain.ResponseLog) error
	List(ctx context.Context, query domain.ResponseQuery) (domain.ResponsePage, error)
}

// ParticipantRepository stores group membership.
type ParticipantRepository interface {
	// Get returns domain.ErrParticipantNotFound for unknown members.
	Get(ctx context.Context, groupID, participantID string) (domain.Participant, error)
	// Upsert keeps CreatedAt of an existing record.
	Upsert(ctx context.Context, participant domain.Participant) (domain.Participant, error)
	List(ctx context.Context, groupID string) ([]domain.Participant, error)
}

// SessionScoreRepository keeps running per-session totals.
type SessionScoreRepository interface {
	// Add increments Score, ScoreMax and Responses of the matching total, creating it when absent.
	Add(ctx context.Context, delta domain.SessionScore) (domain.SessionScore, error)
	List(ctx context.Context, groupID, participantID, sessionID string) ([]domain.SessionScore, error)
}

// QuestionRepository loads question content (from cache/backing store).
type QuestionRepository interface {
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// Notifier fans committed group states out to subscribers.
type Notifier interface {
	Publish(ctx context.Context, state domain.GroupState) error
	// Subscribe returns a channel of states for the group. The caller must invoke
	// the returned cancel function to avoid leaks.
	Subscribe(ctx context.Context, groupID string) (<-chan domain.GroupState, func(), error)
}

// Stores groups the persistence dependencies of the service.
type Stores struct {
	Groups       GroupStateRepository
	Responses    ResponseLogRepository
	Participants ParticipantRepository
	Scores       SessionScoreRepository
}

// QAService contains the live question use cases.
type QAService struct {
	groups       GroupStateRepository
	responses    ResponseLogRepository
	participants ParticipantRepository
	scores       SessionScoreRepository
	questions    QuestionRepository
	notifier     Notifier

	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option customizes a QAService.
type Option func(*QAService)

// WithClock replaces time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *QAService) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *QAService) { s.logger = logger }
}

func NewQAService(stores Stores, questions QuestionRepository, notifier Notifier, opts ...Option) *QAService {
	s := &QAService{
		groups:       stores.Groups,
		responses:    stores.Responses,
		participants: stores.Participants,
		scores:       stores.Scores,
		questions:    questions,
		notifier:     notifier,
		now:          time.Now,
		newID:        uuid.NewString,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentState returns the group's state with its effective status: an opened
// question past its deadline reads as closed even before the sweeper writes it.
func (s *QAService) CurrentState(ctx context.Context, groupID string) (domain.GroupState, error) {
	state, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return domain.GroupState{}, err
	}
	state.Status = state.EffectiveStatus(s.now())
	return state, nil
}

// Subscribe streams the group's state: the current one first (when it exists),
// then every committed change. States never go backwards in version.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QAService) Subscribe(ctx context.Context, groupID string) (<-chan domain.GroupState, func(), error) {
	src, cancelSrc, err := s.notifier.Subscribe(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	var initial *domain.GroupState
	if state, err := s.CurrentState(ctx, groupID); err == nil {
		initial = &state
	} else if !errors.Is(err, domain.ErrGroupNotFound) {
		cancelSrc()
		return nil, nil, err
	}

	out := make(chan domain.GroupState, 8)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			cancelSrc()
		})
	}

	go func() {
		defer close(out)
		var last int64
		if initial != nil {
			last = initial.Version
			out <- *initial
		}
		for {
			select {
			case <-done:
				return
			case state, ok := <-src:
				if !ok {
					return
				}
				if state.Version <= last {
					continue
				}
				last = state.Version
				select {
				case out <- state:
				case <-done:
					return
				}
			}
		}
	}()
	return out, cancel, nil
}

func (s *QAService) publish(ctx context.Context, state domain.GroupState) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, state); err != nil {
		// The write is committed; subscribers catch up on the next change or by polling.
		s.logger.Warn("publish group state", "group_id", state.GroupID, "version", state.Version, "err", err)
	}
}
