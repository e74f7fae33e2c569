package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SessionRepository stores each session as one JSON document under
// session:{id}, with membership index sets per status and per owner.
// Conditional updates run inside WATCH/MULTI: the version field of the
// stored document is compared against the caller's snapshot and the
// transaction aborts (ErrConflict) when another writer committed first.
type SessionRepository struct {
	client *redis.Client
}

var _ app.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	stored := session.Clone()
	stored.Version = 1
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.sessionKey(session.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return domain.ErrSessionExists
	}

	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, r.statusKey(stored.Status), stored.ID)
	pipe.SAdd(ctx, r.ownerKey(stored.OwnerID), stored.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	session.Version = 1
	return nil
}

func (r *SessionRepository) Load(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) Save(ctx context.Context, session *domain.Session) error {
	key := r.sessionKey(session.ID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("reread session: %w", err)
		}
		var current domain.Session
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if current.Version != session.Version {
			return domain.ErrConflict
		}

		next := session.Clone()
		next.Version++
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if current.Status != next.Status {
				pipe.SRem(ctx, r.statusKey(current.Status), next.ID)
				pipe.SAdd(ctx, r.statusKey(next.Status), next.ID)
			}
			return nil
		})
		if err == nil {
			session.Version = next.Version
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Another writer touched the key between WATCH and EXEC.
		return domain.ErrConflict
	}
	return err
}

func (r *SessionRepository) ListByStatus(ctx context.Context, status domain.Status) ([]domain.SessionSummary, error) {
	return r.listIndexed(ctx, r.statusKey(status))
}

func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.SessionSummary, error) {
	return r.listIndexed(ctx, r.ownerKey(ownerID))
}

func (r *SessionRepository) listIndexed(ctx context.Context, indexKey string) ([]domain.SessionSummary, error) {
	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	summaries := make([]domain.SessionSummary, 0, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.sessionKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var session domain.Session
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			continue
		}
		summaries = append(summaries, session.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

func (r *SessionRepository) sessionKey(id string) string {
	return "session:" + id
}

func (r *SessionRepository) statusKey(status domain.Status) string {
	return "sessions:status:" + string(status)
}

func (r *SessionRepository) ownerKey(ownerID string) string {
	return "sessions:owner:" + ownerID
}
