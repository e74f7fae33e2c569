package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"live-quiz-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizSetLoader loads quiz set JSONB from Postgres.
type QuizSetLoader struct {
	pool *pgxpool.Pool
}

func NewQuizSetLoader(pool *pgxpool.Pool) *QuizSetLoader {
	return &QuizSetLoader{pool: pool}
}

func (l *QuizSetLoader) LoadQuizSet(ctx context.Context, id string) (domain.QuizSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quiz_sets WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSet{}, domain.ErrQuizSetNotFound
	}
	if err != nil {
		return domain.QuizSet{}, fmt.Errorf("load quiz set: %w", err)
	}
	var set domain.QuizSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuizSet{}, fmt.Errorf("unmarshal quiz set: %w", err)
	}
	if set.ID == "" {
		set.ID = id
	}
	return set, nil
}
