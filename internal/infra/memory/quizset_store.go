package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"live-quiz-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuizSetLoader fetches quiz sets from a backing store (e.g., Postgres).
type QuizSetLoader interface {
	LoadQuizSet(ctx context.Context, id string) (domain.QuizSet, error)
}

// QuizSetStore caches quiz sets with TTL to avoid repeated backing-store
// hits; session creation is the only reader, but dashboards may re-resolve
// titles.
type QuizSetStore struct {
	loader QuizSetLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuizSet
}

type cachedQuizSet struct {
	set       domain.QuizSet
	expiresAt time.Time
}

func NewQuizSetStore(loader QuizSetLoader, ttl time.Duration) *QuizSetStore {
	return &QuizSetStore{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuizSet),
	}
}

func (s *QuizSetStore) GetQuizSet(ctx context.Context, id string) (domain.QuizSet, error) {
	now := s.clock()

	s.mu.RLock()
	if entry, ok := s.cache[id]; ok && entry.expiresAt.After(now) {
		s.mu.RUnlock()
		return entry.set, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do(id, func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if entry, ok := s.cache[id]; ok && entry.expiresAt.After(now) {
			s.mu.RUnlock()
			return entry.set, nil
		}
		s.mu.RUnlock()

		set, err := s.loader.LoadQuizSet(ctx, id)
		if err != nil {
			return domain.QuizSet{}, err
		}

		s.mu.Lock()
		s.cache[id] = cachedQuizSet{
			set:       set,
			expiresAt: now.Add(s.ttlWithJitter()),
		}
		s.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuizSet{}, err
	}
	return result.(domain.QuizSet), nil
}

func (s *QuizSetStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

// StaticQuizSetLoader is a loader backed by an in-memory map (tests/demos).
type StaticQuizSetLoader struct {
	sets map[string]domain.QuizSet
}

func NewStaticQuizSetLoader(sets map[string]domain.QuizSet) *StaticQuizSetLoader {
	return &StaticQuizSetLoader{sets: sets}
}

func (l *StaticQuizSetLoader) LoadQuizSet(_ context.Context, id string) (domain.QuizSet, error) {
	if set, ok := l.sets[id]; ok {
		return set, nil
	}
	return domain.QuizSet{}, domain.ErrQuizSetNotFound
}

// GetQuizSet lets the static loader double as an app.QuizSetStore directly.
func (l *StaticQuizSetLoader) GetQuizSet(ctx context.Context, id string) (domain.QuizSet, error) {
	return l.LoadQuizSet(ctx, id)
}
