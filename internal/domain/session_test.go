package domain

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestSession() *Session {
	set := QuizSet{
		ID:      "quizset-1",
		OwnerID: "owner-1",
		Title:   "Sample",
		Questions: []Question{
			{Question: "q0", Options: []string{"a", "b"}, CorrectAnswer: "a"},
			{Question: "q1", Options: []string{"a", "b"}, CorrectAnswer: "b"},
			{Question: "q2", Options: []string{"a", "b"}, CorrectAnswer: "a"},
		},
	}
	return NewSession("session-1", set, 1, testNow)
}

func TestNewSessionDefaults(t *testing.T) {
	set := QuizSet{ID: "qs", OwnerID: "o", Questions: []Question{{Question: "q"}}}
	session := NewSession("s", set, 0, testNow)

	if session.Status != StatusWaiting {
		t.Fatalf("expected waiting, got %s", session.Status)
	}
	if session.DurationMinutes != DefaultDurationMinutes {
		t.Fatalf("expected default duration, got %d", session.DurationMinutes)
	}
	if session.QuestionCount != 1 {
		t.Fatalf("expected question count snapshot 1, got %d", session.QuestionCount)
	}
	if len(session.Participants) != 0 {
		t.Fatalf("expected no participants, got %d", len(session.Participants))
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	session := newTestSession()

	if err := session.Join(Principal{ID: "u1", DisplayName: "Alice"}, testNow); err != nil {
		t.Fatalf("join: %v", err)
	}
	session.Participants[0].Score = 2
	session.Participants[0].IsFinished = true

	if err := session.Join(Principal{ID: "u1", DisplayName: "Alice again"}, testNow.Add(time.Second)); err != nil {
		t.Fatalf("repeat join: %v", err)
	}
	if len(session.Participants) != 1 {
		t.Fatalf("expected 1 participant, got %d", len(session.Participants))
	}
	p := session.Participants[0]
	if p.Score != 2 || !p.IsFinished || p.DisplayName != "Alice" {
		t.Fatalf("repeat join reset participant: %+v", p)
	}
}

func TestJoinRejectedOnceStarted(t *testing.T) {
	session := newTestSession()
	if err := session.Start("owner-1", testNow); err != nil {
		t.Fatalf("start: %v", err)
	}

	err := session.Join(Principal{ID: "late", DisplayName: "Late"}, testNow)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if len(session.Participants) != 0 {
		t.Fatalf("late join mutated participants: %d", len(session.Participants))
	}
}

func TestStartArmsTimerExactly(t *testing.T) {
	session := newTestSession()
	if err := session.Start("owner-1", testNow); err != nil {
		t.Fatalf("start: %v", err)
	}

	if session.Status != StatusActive {
		t.Fatalf("expected active, got %s", session.Status)
	}
	if got := session.EndTime.Sub(*session.StartTime); got != time.Duration(session.DurationMinutes)*time.Minute {
		t.Fatalf("expected end-start == %dm, got %s", session.DurationMinutes, got)
	}
}

func TestStartOnlyOnce(t *testing.T) {
	session := newTestSession()
	if err := session.Start("owner-1", testNow); err != nil {
		t.Fatalf("start: %v", err)
	}
	start, end := *session.StartTime, *session.EndTime

	err := session.Start("owner-1", testNow.Add(time.Minute))
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state on second start, got %v", err)
	}
	if !session.StartTime.Equal(start) || !session.EndTime.Equal(end) {
		t.Fatalf("second start re-armed the timer")
	}

	if err := session.End("owner-1", testNow.Add(time.Minute)); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := session.Start("owner-1", testNow.Add(2 * time.Minute)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state starting completed session, got %v", err)
	}
}

func TestStartAndEndRequireOwner(t *testing.T) {
	session := newTestSession()

	if err := session.Start("intruder", testNow); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden start, got %v", err)
	}
	if err := session.End("intruder", testNow); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden end, got %v", err)
	}

	if err := session.Start("owner-1", testNow); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.End("intruder", testNow); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden end while active, got %v", err)
	}
}

func TestEndOverridesEndTime(t *testing.T) {
	session := newTestSession()
	if err := session.Start("owner-1", testNow); err != nil {
		t.Fatalf("start: %v", err)
	}

	early := testNow.Add(20 * time.Second)
	if err := session.End("owner-1", early); err != nil {
		t.Fatalf("end: %v", err)
	}
	if session.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", session.Status)
	}
	if !session.EndTime.Equal(early) {
		t.Fatalf("expected end time override to %s, got %s", early, session.EndTime)
	}

	if err := session.End("owner-1", early.Add(time.Second)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state ending twice, got %v", err)
	}
}

func TestEndAbandonsWaitingSession(t *testing.T) {
	session := newTestSession()
	if err := session.End("owner-1", testNow); err != nil {
		t.Fatalf("end from waiting: %v", err)
	}
	if session.Status != StatusCompleted || session.StartTime != nil {
		t.Fatalf("expected completed lobby with no start time, got %s %v", session.Status, session.StartTime)
	}
}

func TestSubmitOverwritesWholesale(t *testing.T) {
	session := newTestSession()
	if err := session.Join(Principal{ID: "u1", DisplayName: "Alice"}, testNow); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := session.Start("owner-1", testNow); err != nil {
		t.Fatalf("start: %v", err)
	}

	first := []Answer{
		{QuestionIndex: 0, SelectedOption: "a", IsCorrect: true},
		{QuestionIndex: 1, SelectedOption: "a", IsCorrect: false},
		{QuestionIndex: 2, SelectedOption: "a", IsCorrect: true},
	}
	if err := session.Submit("u1", first, 2, 100); err != nil {
		t.Fatalf("submit: %v", err)
	}
	p, _ := session.Participant("u1")
	if p.Score != 2 || !p.IsFinished || len(p.Answers) != 3 {
		t.Fatalf("unexpected participant after submit: %+v", p)
	}

	// Resubmission is last-write-wins.
	second := []Answer{
		{QuestionIndex: 0, SelectedOption: "b", IsCorrect: false},
		{QuestionIndex: 1, SelectedOption: "b", IsCorrect: true},
		{QuestionIndex: 2, SelectedOption: "b", IsCorrect: false},
	}
	if err := session.Submit("u1", second, 1, 100); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	p, _ = session.Participant("u1")
	if p.Score != 1 || p.Answers[0].SelectedOption != "b" {
		t.Fatalf("resubmit did not overwrite: %+v", p)
	}
}

func TestSubmitRejections(t *testing.T) {
	session := newTestSession()
	if err := session.Join(Principal{ID: "u1", DisplayName: "Alice"}, testNow); err != nil {
		t.Fatalf("join: %v", err)
	}

	answers := []Answer{
		{QuestionIndex: 0, SelectedOption: "a", IsCorrect: true},
		{QuestionIndex: 1, SelectedOption: "b", IsCorrect: true},
		{QuestionIndex: 2, SelectedOption: "a", IsCorrect: true},
	}

	// Not active yet.
	if err := session.Submit("u1", answers, 3, 100); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state while waiting, got %v", err)
	}

	if err := session.Start("owner-1", testNow); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := session.Submit("ghost", answers, 3, 100); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("expected participant not found, got %v", err)
	}
	if err := session.Submit("u1", answers[:2], 2, 100); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error on short sheet, got %v", err)
	}
	bad := []Answer{
		{QuestionIndex: 0, SelectedOption: "a", IsCorrect: true},
		{QuestionIndex: 1, SelectedOption: "b", IsCorrect: true},
		{QuestionIndex: 7, SelectedOption: "a", IsCorrect: true},
	}
	if err := session.Submit("u1", bad, 3, 100); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error on index out of range, got %v", err)
	}
	if err := session.Submit("u1", answers, 3, 150); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error on progress out of range, got %v", err)
	}

	// Failed submits must leave the participant untouched.
	p, _ := session.Participant("u1")
	if p.IsFinished || p.Score != 0 || p.Answers != nil {
		t.Fatalf("failed submit mutated participant: %+v", p)
	}

	if err := session.End("owner-1", testNow.Add(time.Minute)); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := session.Submit("u1", answers, 3, 100); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state after completion, got %v", err)
	}
}

func TestRemainingSeconds(t *testing.T) {
	session := newTestSession()
	if got := session.RemainingSeconds(testNow); got != 60 {
		t.Fatalf("expected full duration while waiting, got %d", got)
	}

	if err := session.Start("owner-1", testNow); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := session.RemainingSeconds(testNow.Add(15 * time.Second)); got != 45 {
		t.Fatalf("expected 45s remaining, got %d", got)
	}
	if got := session.RemainingSeconds(testNow.Add(5 * time.Minute)); got != 0 {
		t.Fatalf("expected 0 after deadline, got %d", got)
	}

	if err := session.End("owner-1", testNow.Add(30 * time.Second)); err != nil {
		t.Fatalf("end: %v", err)
	}
	if got := session.RemainingSeconds(testNow.Add(30 * time.Second)); got != 0 {
		t.Fatalf("expected 0 once completed, got %d", got)
	}
}
