package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"live-quiz-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptSink appends submit outcomes to the quiz_attempts history table.
// Callers treat failures as best-effort: a lost history row never fails the
// submit that produced it.
type AttemptSink struct {
	pool *pgxpool.Pool
}

func NewAttemptSink(pool *pgxpool.Pool) *AttemptSink {
	return &AttemptSink{pool: pool}
}

func (s *AttemptSink) RecordAttempt(ctx context.Context, attempt domain.Attempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (user_id, quiz_set_id, score, total_questions, answers, completed_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		attempt.UserID, attempt.QuizSetID, attempt.Score, attempt.TotalQuestions, string(answers), attempt.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}
