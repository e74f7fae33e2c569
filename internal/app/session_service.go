package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"live-quiz-service/internal/domain"

	"github.com/google/uuid"
)

// SessionRepository abstracts durable session storage. Save must detect
// concurrent writes via the session's version counter and return
// domain.ErrConflict instead of silently overwriting.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	Load(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.SessionSummary, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.SessionSummary, error)
}

// QuizSetStore loads immutable quiz content (from cache/backing store).
type QuizSetStore interface {
	GetQuizSet(ctx context.Context, id string) (domain.QuizSet, error)
}

// AttemptSink receives best-effort attempt history writes after a submit.
type AttemptSink interface {
	RecordAttempt(ctx context.Context, attempt domain.Attempt) error
}

// Action names one of the four session transitions.
type Action string

const (
	ActionJoin   Action = "join"
	ActionStart  Action = "start"
	ActionEnd    Action = "end"
	ActionSubmit Action = "submit"
)

// SubmitPayload carries the participant's whole answer sheet.
type SubmitPayload struct {
	Answers  []domain.Answer
	Score    int
	Progress int
}

// conflictRetries bounds the Load→mutate→Save cycle. Each conflict means
// another writer committed, so a stuck retry loop cannot livelock; the bound
// only caps pathological contention.
const conflictRetries = 10

// SessionService implements the coordination use cases over a session
// repository, a quiz set store, and an attempt sink.
type SessionService struct {
	sessions SessionRepository
	quizSets QuizSetStore
	attempts AttemptSink
	now      func() time.Time
}

func NewSessionService(sessions SessionRepository, quizSets QuizSetStore, attempts AttemptSink) *SessionService {
	return NewSessionServiceWithClock(sessions, quizSets, attempts, time.Now)
}

// NewSessionServiceWithClock is test-only for deterministic timestamps.
func NewSessionServiceWithClock(sessions SessionRepository, quizSets QuizSetStore, attempts AttemptSink, now func() time.Time) *SessionService {
	return &SessionService{sessions: sessions, quizSets: quizSets, attempts: attempts, now: now}
}

// Create opens a waiting session over the caller's quiz set and snapshots
// its question count. Only the quiz set's owner may host a session on it.
func (s *SessionService) Create(ctx context.Context, principal domain.Principal, quizSetID string, durationMinutes int) (string, error) {
	set, err := s.quizSets.GetQuizSet(ctx, quizSetID)
	if err != nil {
		return "", err
	}
	if set.OwnerID != principal.ID {
		return "", domain.ErrForbidden
	}

	session := domain.NewSession(uuid.NewString(), set, durationMinutes, s.now().UTC())
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}
	return session.ID, nil
}

// Apply validates and applies one of the four transitions. Repository
// conflicts are retried transparently; state-machine rejections are returned
// to the caller untouched.
func (s *SessionService) Apply(ctx context.Context, principal domain.Principal, sessionID string, action Action, payload SubmitPayload) error {
	switch action {
	case ActionJoin:
		_, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
			return session.Join(principal, s.now().UTC())
		})
		return err
	case ActionStart:
		_, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
			return session.Start(principal.ID, s.now().UTC())
		})
		return err
	case ActionEnd:
		_, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
			return session.End(principal.ID, s.now().UTC())
		})
		return err
	case ActionSubmit:
		session, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
			return session.Submit(principal.ID, payload.Answers, payload.Score, payload.Progress)
		})
		if err != nil {
			return err
		}
		s.recordAttempt(ctx, session, principal.ID)
		return nil
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrValidation, action)
	}
}

// mutate runs one bounded optimistic-concurrency cycle: load the current
// record, apply the transition, save conditionally, and start over on
// conflict. The session never auto-expires here: an active session past its
// end time stays active until a client submits or the owner ends it.
func (s *SessionService) mutate(ctx context.Context, sessionID string, fn func(*domain.Session) error) (*domain.Session, error) {
	for attempt := 0; attempt < conflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(rand.Intn(2000)) * time.Microsecond):
			}
		}

		session, err := s.sessions.Load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if err := fn(session); err != nil {
			return nil, err
		}

		err = s.sessions.Save(ctx, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
	}
	return nil, domain.ErrConflict
}

// recordAttempt writes to the external history log. Failures are logged and
// never fail the submit itself.
func (s *SessionService) recordAttempt(ctx context.Context, session *domain.Session, userID string) {
	participant, ok := session.Participant(userID)
	if !ok {
		return
	}
	attempt := domain.Attempt{
		UserID:         userID,
		QuizSetID:      session.QuizSetID,
		Score:          participant.Score,
		TotalQuestions: session.QuestionCount,
		Answers:        participant.Answers,
		CompletedAt:    s.now().UTC(),
	}
	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		log.Printf("record attempt for user %s in session %s: %v", userID, session.ID, err)
	}
}

// ParticipantView redacts a participant for the requesting principal.
// Score and answers are nil until the session completes, unless the owner
// is asking.
type ParticipantView struct {
	UserID      string          `json:"userId"`
	DisplayName string          `json:"displayName"`
	JoinedAt    time.Time       `json:"joinedAt"`
	Progress    int             `json:"progress"`
	IsFinished  bool            `json:"isFinished"`
	Score       *int            `json:"score,omitempty"`
	Answers     []domain.Answer `json:"answers,omitempty"`
}

// SessionView is the poll response: a session snapshot plus the
// server-computed remaining time.
type SessionView struct {
	ID               string            `json:"id"`
	QuizSetID        string            `json:"quizSetId"`
	OwnerID          string            `json:"ownerId"`
	Status           domain.Status     `json:"status"`
	DurationMinutes  int               `json:"durationMinutes"`
	QuestionCount    int               `json:"questionCount"`
	StartTime        *time.Time        `json:"startTime,omitempty"`
	EndTime          *time.Time        `json:"endTime,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Participants     []ParticipantView `json:"participants"`
}

// Get returns the session snapshot for a poll. Remaining time is always
// computed from server time so client clocks cannot influence it.
func (s *SessionService) Get(ctx context.Context, principal domain.Principal, sessionID string) (SessionView, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(session, principal), nil
}

func (s *SessionService) view(session *domain.Session, principal domain.Principal) SessionView {
	revealScores := session.Status == domain.StatusCompleted || principal.ID == session.OwnerID

	participants := make([]ParticipantView, 0, len(session.Participants))
	for _, p := range session.Participants {
		view := ParticipantView{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			JoinedAt:    p.JoinedAt,
			Progress:    p.Progress,
			IsFinished:  p.IsFinished,
		}
		if revealScores {
			score := p.Score
			view.Score = &score
			view.Answers = p.Answers
		}
		participants = append(participants, view)
	}

	return SessionView{
		ID:               session.ID,
		QuizSetID:        session.QuizSetID,
		OwnerID:          session.OwnerID,
		Status:           session.Status,
		DurationMinutes:  session.DurationMinutes,
		QuestionCount:    session.QuestionCount,
		StartTime:        session.StartTime,
		EndTime:          session.EndTime,
		CreatedAt:        session.CreatedAt,
		RemainingSeconds: session.RemainingSeconds(s.now().UTC()),
		Participants:     participants,
	}
}

// Leaderboard is visible to the owner at any time and to everyone once the
// session completes.
func (s *SessionService) Leaderboard(ctx context.Context, principal domain.Principal, sessionID string) (Leaderboard, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return Leaderboard{}, err
	}
	if session.Status != domain.StatusCompleted && principal.ID != session.OwnerID {
		return Leaderboard{}, domain.ErrForbidden
	}
	return BuildLeaderboard(session), nil
}

// ProgressFeed is the owner-only live view: progress and finished flags
// without scores.
func (s *SessionService) ProgressFeed(ctx context.Context, principal domain.Principal, sessionID string) ([]ProgressEntry, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if principal.ID != session.OwnerID {
		return nil, domain.ErrForbidden
	}
	return BuildProgressFeed(session), nil
}

// Analytics aggregates scores after completion.
func (s *SessionService) Analytics(ctx context.Context, principal domain.Principal, sessionID string) (Analytics, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return Analytics{}, err
	}
	if session.Status != domain.StatusCompleted {
		return Analytics{}, domain.ErrInvalidState
	}
	return BuildAnalytics(session), nil
}

// ListByStatus lists session summaries in one lifecycle phase.
func (s *SessionService) ListByStatus(ctx context.Context, status domain.Status) ([]domain.SessionSummary, error) {
	switch status {
	case domain.StatusWaiting, domain.StatusActive, domain.StatusCompleted:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	return s.sessions.ListByStatus(ctx, status)
}

// ListOpen lists joinable or running sessions, newest first.
func (s *SessionService) ListOpen(ctx context.Context) ([]domain.SessionSummary, error) {
	waiting, err := s.sessions.ListByStatus(ctx, domain.StatusWaiting)
	if err != nil {
		return nil, err
	}
	active, err := s.sessions.ListByStatus(ctx, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	open := append(waiting, active...)
	sort.Slice(open, func(i, j int) bool {
		return open[i].CreatedAt.After(open[j].CreatedAt)
	})
	return open, nil
}

// ListByOwner lists the principal's own sessions, newest first.
func (s *SessionService) ListByOwner(ctx context.Context, principal domain.Principal) ([]domain.SessionSummary, error) {
	return s.sessions.ListByOwner(ctx, principal.ID)
}
