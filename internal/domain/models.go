package domain

import "time"

// Status is the lifecycle phase of a live session. It only ever advances.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// DefaultDurationMinutes applies when a session is created without an
// explicit time limit.
const DefaultDurationMinutes = 30

// Principal is a verified caller identity supplied per request by the
// upstream authentication layer.
type Principal struct {
	ID          string
	DisplayName string
}

// Answer records one answered question on a participant's sheet.
type Answer struct {
	QuestionIndex  int    `json:"questionIndex"`
	SelectedOption string `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
}

// Participant is one joined user inside a session, unique by UserID.
type Participant struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
	Progress    int       `json:"progress"`
	Score       int       `json:"score"`
	IsFinished  bool      `json:"isFinished"`
	Answers     []Answer  `json:"answers,omitempty"`
}

// Session is the aggregate root coordinating one timed quiz run.
// Participants are kept in join order. Version is the optimistic-concurrency
// counter bumped by every successful repository save.
type Session struct {
	ID              string        `json:"id"`
	QuizSetID       string        `json:"quizSetId"`
	OwnerID         string        `json:"ownerId"`
	Status          Status        `json:"status"`
	DurationMinutes int           `json:"durationMinutes"`
	QuestionCount   int           `json:"questionCount"`
	StartTime       *time.Time    `json:"startTime,omitempty"`
	EndTime         *time.Time    `json:"endTime,omitempty"`
	Participants    []Participant `json:"participants"`
	CreatedAt       time.Time     `json:"createdAt"`
	Version         int64         `json:"version"`
}

// SessionSummary is the projection returned by session listings.
type SessionSummary struct {
	ID               string    `json:"id"`
	QuizSetID        string    `json:"quizSetId"`
	OwnerID          string    `json:"ownerId"`
	Status           Status    `json:"status"`
	QuestionCount    int       `json:"questionCount"`
	ParticipantCount int       `json:"participantCount"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Question models an MCQ question with its correct answer and explanation.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuizSet is an immutable ordered question list owned outside the coordinator.
type QuizSet struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Attempt is the history record written to the attempt sink after a submit.
type Attempt struct {
	UserID         string    `json:"userId"`
	QuizSetID      string    `json:"quizSetId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Answers        []Answer  `json:"answers"`
	CompletedAt    time.Time `json:"completedAt"`
}
