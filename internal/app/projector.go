package app

import (
	"sort"

	"live-quiz-service/internal/domain"
)

// LeaderboardEntry is one ranked row with display accuracy.
type LeaderboardEntry struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	Score       int     `json:"score"`
	Accuracy    float64 `json:"accuracy"`
	IsFinished  bool    `json:"isFinished"`
}

// Leaderboard is the ranked scoreboard for one session.
type Leaderboard struct {
	SessionID     string             `json:"sessionId"`
	QuestionCount int                `json:"questionCount"`
	Entries       []LeaderboardEntry `json:"entries"`
}

// ProgressEntry is the owner's live view of one participant, scores withheld.
type ProgressEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Progress    int    `json:"progress"`
	IsFinished  bool   `json:"isFinished"`
}

// Analytics aggregates a completed session. Accuracy buckets:
// high >= 0.8, 0.5 <= mid < 0.8, low < 0.5.
type Analytics struct {
	ParticipantCount int     `json:"participantCount"`
	MeanScore        float64 `json:"meanScore"`
	HighCount        int     `json:"highCount"`
	MidCount         int     `json:"midCount"`
	LowCount         int     `json:"lowCount"`
}

// BuildLeaderboard ranks participants by score descending. Ties break by
// join order, then user id, so the ordering is deterministic for any
// snapshot of the same session.
func BuildLeaderboard(session *domain.Session) Leaderboard {
	entries := make([]LeaderboardEntry, 0, len(session.Participants))
	joinOrder := make(map[string]int, len(session.Participants))
	for i, p := range session.Participants {
		joinOrder[p.UserID] = i
		entries = append(entries, LeaderboardEntry{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
			Accuracy:    accuracy(p.Score, session.QuestionCount),
			IsFinished:  p.IsFinished,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if oi, oj := joinOrder[entries[i].UserID], joinOrder[entries[j].UserID]; oi != oj {
			return oi < oj
		}
		return entries[i].UserID < entries[j].UserID
	})

	return Leaderboard{
		SessionID:     session.ID,
		QuestionCount: session.QuestionCount,
		Entries:       entries,
	}
}

// BuildProgressFeed lists participants in join order with their advisory
// progress, never their scores.
func BuildProgressFeed(session *domain.Session) []ProgressEntry {
	feed := make([]ProgressEntry, 0, len(session.Participants))
	for _, p := range session.Participants {
		feed = append(feed, ProgressEntry{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Progress:    p.Progress,
			IsFinished:  p.IsFinished,
		})
	}
	return feed
}

// BuildAnalytics computes the mean score and accuracy distribution. A
// session with no participants yields zeros rather than dividing by zero.
func BuildAnalytics(session *domain.Session) Analytics {
	a := Analytics{ParticipantCount: len(session.Participants)}
	if a.ParticipantCount == 0 {
		return a
	}

	total := 0
	for _, p := range session.Participants {
		total += p.Score
		switch acc := accuracy(p.Score, session.QuestionCount); {
		case acc >= 0.8:
			a.HighCount++
		case acc >= 0.5:
			a.MidCount++
		default:
			a.LowCount++
		}
	}
	a.MeanScore = float64(total) / float64(a.ParticipantCount)
	return a
}

func accuracy(score, questionCount int) float64 {
	if questionCount == 0 {
		return 0
	}
	return float64(score) / float64(questionCount)
}
