package memory

import (
	"context"
	"sort"
	"sync"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// SessionRepository is an in-memory implementation of app.SessionRepository
// with optimistic concurrency: every save checks the caller's version
// against the stored one and increments it on success. Loads and saves deal
// in deep copies so callers never share state with the store.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

var _ app.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*domain.Session),
	}
}

func (r *SessionRepository) Create(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; ok {
		return domain.ErrSessionExists
	}
	stored := session.Clone()
	stored.Version = 1
	r.sessions[session.ID] = stored
	session.Version = 1
	return nil
}

func (r *SessionRepository) Load(_ context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (r *SessionRepository) Save(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if current.Version != session.Version {
		return domain.ErrConflict
	}
	stored := session.Clone()
	stored.Version++
	r.sessions[session.ID] = stored
	session.Version = stored.Version
	return nil
}

func (r *SessionRepository) ListByStatus(_ context.Context, status domain.Status) ([]domain.SessionSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	summaries := make([]domain.SessionSummary, 0)
	for _, session := range r.sessions {
		if session.Status == status {
			summaries = append(summaries, session.Summary())
		}
	}
	sortSummaries(summaries)
	return summaries, nil
}

func (r *SessionRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.SessionSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	summaries := make([]domain.SessionSummary, 0)
	for _, session := range r.sessions {
		if session.OwnerID == ownerID {
			summaries = append(summaries, session.Summary())
		}
	}
	sortSummaries(summaries)
	return summaries, nil
}

// sortSummaries orders newest first, matching the owner dashboard listing.
func sortSummaries(summaries []domain.SessionSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
}
