package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"qa-live-service/internal/domain"
)

// QuestionLoader fetches question content from a backing store (content file, Postgres).
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// QuestionRepository caches questions in Redis and falls back to a loader on cache miss.
// Questions are stored as: SET qa:question:{questionID} {json} EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	if question, ok := r.cached(ctx, questionID); ok {
		return question, nil
	}

	result, err, _ := r.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if question, ok := r.cached(ctx, questionID); ok {
			return question, nil
		}

		question, err := r.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}

		if data, err := json.Marshal(question); err == nil {
			_ = r.client.Set(ctx, questionKey(questionID), data, r.ttlWithJitter()).Err()
		}
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

// Invalidate removes the cached copy of a question after its content changed.
func (r *QuestionRepository) Invalidate(ctx context.Context, questionID string) error {
	return r.client.Del(ctx, questionKey(questionID)).Err()
}

// cached treats every Redis failure as a miss; the loader stays authoritative.
func (r *QuestionRepository) cached(ctx context.Context, questionID string) (domain.Question, bool) {
	data, err := r.client.Get(ctx, questionKey(questionID)).Bytes()
	if err != nil {
		return domain.Question{}, false
	}
	var question domain.Question
	if err := json.Unmarshal(data, &question); err != nil {
		return domain.Question{}, false
	}
	return question, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
