package domain

import (
	"fmt"
	"time"
)

// NewSession builds a waiting session over an already-validated quiz set.
// QuestionCount is snapshotted here; the quiz set is never re-read afterwards.
func NewSession(id string, set QuizSet, durationMinutes int, now time.Time) *Session {
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	return &Session{
		ID:              id,
		QuizSetID:       set.ID,
		OwnerID:         set.OwnerID,
		Status:          StatusWaiting,
		DurationMinutes: durationMinutes,
		QuestionCount:   len(set.Questions),
		Participants:    []Participant{},
		CreatedAt:       now,
	}
}

// Participant returns the participant with the given user id, if joined.
func (s *Session) Participant(userID string) (*Participant, bool) {
	for i := range s.Participants {
		if s.Participants[i].UserID == userID {
			return &s.Participants[i], true
		}
	}
	return nil, false
}

// Join adds the caller to a waiting session. A repeated join from the same
// user id is a no-op success and does not reset their record.
func (s *Session) Join(p Principal, now time.Time) error {
	if s.Status != StatusWaiting {
		return ErrInvalidState
	}
	if _, ok := s.Participant(p.ID); ok {
		return nil
	}
	s.Participants = append(s.Participants, Participant{
		UserID:      p.ID,
		DisplayName: p.DisplayName,
		JoinedAt:    now,
	})
	return nil
}

// Start arms the timer and activates the session. Only the owner may start,
// and only from waiting: a second start must fail rather than re-arm.
func (s *Session) Start(callerID string, now time.Time) error {
	if callerID != s.OwnerID {
		return ErrForbidden
	}
	if s.Status != StatusWaiting {
		return ErrInvalidState
	}
	end := now.Add(time.Duration(s.DurationMinutes) * time.Minute)
	s.Status = StatusActive
	s.StartTime = &now
	s.EndTime = &end
	return nil
}

// End completes the session, overriding EndTime with the end-action
// timestamp (early termination). Ending a never-started session abandons the
// lobby; only a session that is already completed rejects the call.
func (s *Session) End(callerID string, now time.Time) error {
	if callerID != s.OwnerID {
		return ErrForbidden
	}
	if s.Status == StatusCompleted {
		return ErrInvalidState
	}
	s.Status = StatusCompleted
	s.EndTime = &now
	return nil
}

// Submit overwrites the participant's sheet wholesale and marks them
// finished. Resubmission is accepted, last write wins. The caller-reported
// score and progress are advisory and stored as-is; only the payload shape
// is validated.
func (s *Session) Submit(userID string, answers []Answer, score, progress int) error {
	if s.Status != StatusActive {
		return ErrInvalidState
	}
	participant, ok := s.Participant(userID)
	if !ok {
		return ErrParticipantNotFound
	}
	if len(answers) != s.QuestionCount {
		return fmt.Errorf("%w: expected %d answers, got %d", ErrValidation, s.QuestionCount, len(answers))
	}
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= s.QuestionCount {
			return fmt.Errorf("%w: question index %d out of range", ErrValidation, a.QuestionIndex)
		}
	}
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: progress %d out of range", ErrValidation, progress)
	}
	participant.Score = score
	participant.Progress = progress
	participant.Answers = answers
	participant.IsFinished = true
	return nil
}

// RemainingSeconds computes the time left at the given server time.
// Waiting sessions report the full duration, completed sessions zero.
func (s *Session) RemainingSeconds(now time.Time) int {
	switch s.Status {
	case StatusWaiting:
		return s.DurationMinutes * 60
	case StatusActive:
		remaining := int(s.EndTime.Sub(now) / time.Second)
		if remaining < 0 {
			return 0
		}
		return remaining
	default:
		return 0
	}
}

// Clone deep-copies the session so stores can hand out snapshots without
// sharing participant slices.
func (s *Session) Clone() *Session {
	clone := *s
	if s.StartTime != nil {
		t := *s.StartTime
		clone.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		clone.EndTime = &t
	}
	clone.Participants = make([]Participant, len(s.Participants))
	copy(clone.Participants, s.Participants)
	for i := range clone.Participants {
		if answers := clone.Participants[i].Answers; answers != nil {
			copied := make([]Answer, len(answers))
			copy(copied, answers)
			clone.Participants[i].Answers = copied
		}
	}
	return &clone
}

// Summary projects the session into its listing form.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:               s.ID,
		QuizSetID:        s.QuizSetID,
		OwnerID:          s.OwnerID,
		Status:           s.Status,
		QuestionCount:    s.QuestionCount,
		ParticipantCount: len(s.Participants),
		CreatedAt:        s.CreatedAt,
	}
}
