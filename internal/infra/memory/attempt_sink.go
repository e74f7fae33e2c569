package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/domain"
)

// AttemptSink collects attempt records in memory; the dev-mode stand-in for
// the external history log.
type AttemptSink struct {
	mu       sync.Mutex
	attempts []domain.Attempt
}

func NewAttemptSink() *AttemptSink {
	return &AttemptSink{}
}

func (s *AttemptSink) RecordAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

// Attempts snapshots the recorded history.
func (s *AttemptSink) Attempts() []domain.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}
