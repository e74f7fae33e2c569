package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizSetCache caches whole quiz sets in Redis (one JSON value per set,
// key quizset:{id}) and falls back to a loader on cache miss. Question
// count and answer sheet validation both need the full ordered question
// list, so the cache holds the complete set rather than an answers-only
// digest.
type QuizSetCache struct {
	client *redis.Client
	loader memory.QuizSetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizSetCache(client *redis.Client, loader memory.QuizSetLoader, ttl time.Duration) *QuizSetCache {
	return &QuizSetCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizSetCache) GetQuizSet(ctx context.Context, id string) (domain.QuizSet, error) {
	key := c.key(id)

	if set, ok := c.fromCache(ctx, key); ok {
		return set, nil
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := c.fromCache(ctx, key); ok {
			return set, nil
		}

		set, err := c.loader.LoadQuizSet(ctx, id)
		if err != nil {
			return domain.QuizSet{}, err
		}

		payload, err := json.Marshal(set)
		if err != nil {
			return domain.QuizSet{}, fmt.Errorf("marshal quiz set: %w", err)
		}
		_ = c.client.Set(ctx, key, payload, c.ttlWithJitter()).Err()

		return set, nil
	})
	if err != nil {
		return domain.QuizSet{}, err
	}
	return result.(domain.QuizSet), nil
}

func (c *QuizSetCache) fromCache(ctx context.Context, key string) (domain.QuizSet, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.QuizSet{}, false
	}
	var set domain.QuizSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuizSet{}, false
	}
	return set, true
}

func (c *QuizSetCache) key(id string) string {
	return "quizset:" + id
}

func (c *QuizSetCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
