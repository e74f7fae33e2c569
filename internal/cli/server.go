package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	pgloader "live-quiz-service/internal/infra/postgres"
	redisinfra "live-quiz-service/internal/infra/redis"
	transport "live-quiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the session coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizSetLoader = memory.NewStaticQuizSetLoader(sampleQuizSets())
	if pool != nil {
		loader = pgloader.NewQuizSetLoader(pool)
	}

	quizSetTTL := config.TTLDuration(cfg.QuizSet.TTL, 10*time.Minute)
	var quizSets app.QuizSetStore
	if redisClient != nil {
		quizSets = redisinfra.NewQuizSetCache(redisClient, loader, quizSetTTL)
	} else {
		quizSets = memory.NewQuizSetStore(loader, quizSetTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionRepository(redisClient)
	} else {
		sessions = memory.NewSessionRepository()
	}

	var attempts app.AttemptSink
	if pool != nil {
		attempts = pgloader.NewAttemptSink(pool)
	} else {
		attempts = memory.NewAttemptSink()
	}

	service := app.NewSessionService(sessions, quizSets, attempts)
	handler := transport.NewHandler(service)
	watchHandler := transport.NewWatchHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("GET /sessions/{id}/watch", watchHandler.ServeWatch)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting live quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizSets provides minimal quiz content for running without Postgres.
func sampleQuizSets() map[string]domain.QuizSet {
	return map[string]domain.QuizSet{
		"quizset-1": {
			ID:      "quizset-1",
			OwnerID: "owner-1",
			Title:   "Arithmetic warmup",
			Questions: []domain.Question{
				{
					Question:      "What is 2 + 2?",
					Options:       []string{"3", "4", "5"},
					CorrectAnswer: "4",
					Explanation:   "Basic addition.",
				},
				{
					Question:      "What is 3 * 3?",
					Options:       []string{"6", "9", "12"},
					CorrectAnswer: "9",
					Explanation:   "Basic multiplication.",
				},
			},
		},
	}
}
