package entity

import (
	"sort"
	"time"
)

// LeaderboardMode определяет, какие попытки попадают в рейтинг
type LeaderboardMode string

const (
	// LeaderboardCompleted - только завершенные попытки
	LeaderboardCompleted LeaderboardMode = "completed"
	// LeaderboardLive - все попытки, включая незавершенные
	LeaderboardLive LeaderboardMode = "live"
)

// ParseLeaderboardMode разбирает режим из query-параметра. Пустое значение - completed.
func ParseLeaderboardMode(raw string) (LeaderboardMode, bool) {
	switch LeaderboardMode(raw) {
	case "", LeaderboardCompleted:
		return LeaderboardCompleted, true
	case LeaderboardLive:
		return LeaderboardLive, true
	default:
		return "", false
	}
}

// AttemptSummary - строка рейтинга. Rank вычисляется на каждый запрос и нигде не хранится.
type AttemptSummary struct {
	Rank            int        `json:"rank"`
	AttemptID       uint       `json:"attempt_id"`
	ParticipantID   uint       `json:"participant_id"`
	ParticipantName string     `json:"participant_name"`
	Score           int        `json:"score"`
	CurrentQuestion int        `json:"current_question"`
	Answered        int        `json:"answered"`
	TotalQuestions  int        `json:"total_questions"`
	TotalTimeMs     int64      `json:"total_time_ms"`
	IsCompleted     bool       `json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// lessCompleted: очки ↓, время ↑, момент завершения ↑, id ↑
func lessCompleted(a, b *Attempt) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.TotalTimeMs != b.TotalTimeMs {
		return a.TotalTimeMs < b.TotalTimeMs
	}
	at, bt := completedAtOrMax(a), completedAtOrMax(b)
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return a.ID < b.ID
}

// lessLive: очки ↓, прогресс ↓, время ↑, id ↑
func lessLive(a, b *Attempt) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.CurrentQuestion != b.CurrentQuestion {
		return a.CurrentQuestion > b.CurrentQuestion
	}
	if a.TotalTimeMs != b.TotalTimeMs {
		return a.TotalTimeMs < b.TotalTimeMs
	}
	return a.ID < b.ID
}

func completedAtOrMax(a *Attempt) time.Time {
	if a.CompletedAt == nil {
		return time.Unix(1<<62, 0)
	}
	return *a.CompletedAt
}

// SortStandings фильтрует и упорядочивает попытки по правилам режима (стабильно)
func SortStandings(mode LeaderboardMode, attempts []Attempt) []Attempt {
	filtered := make([]Attempt, 0, len(attempts))
	for _, a := range attempts {
		if mode == LeaderboardCompleted && !a.IsCompleted {
			continue
		}
		filtered = append(filtered, a)
	}

	less := lessCompleted
	if mode == LeaderboardLive {
		less = lessLive
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return less(&filtered[i], &filtered[j])
	})
	return filtered
}

// BuildStandings превращает упорядоченные попытки в строки рейтинга с позициями 1..N
func BuildStandings(ordered []Attempt, totalQuestions int, limit int) []AttemptSummary {
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	summaries := make([]AttemptSummary, len(ordered))
	for i, a := range ordered {
		name := ""
		if a.Participant != nil {
			name = a.Participant.Name
		}
		summaries[i] = AttemptSummary{
			Rank:            i + 1,
			AttemptID:       a.ID,
			ParticipantID:   a.ParticipantID,
			ParticipantName: name,
			Score:           a.Score,
			CurrentQuestion: a.CurrentQuestion,
			Answered:        a.Progress(totalQuestions),
			TotalQuestions:  totalQuestions,
			TotalTimeMs:     a.TotalTimeMs,
			IsCompleted:     a.IsCompleted,
			CompletedAt:     a.CompletedAt,
		}
	}
	return summaries
}

// ParticipationEvent - тип события для сборщика статистики
type ParticipationEvent string

const (
	EventJoin     ParticipationEvent = "join"
	EventAnswer   ParticipationEvent = "answer"
	EventComplete ParticipationEvent = "complete"
)

// LiveStats - рекомендательная статистика участия, не используется для решений
type LiveStats struct {
	QuizID             uint  `json:"quiz_id"`
	ActivePlayers      int64 `json:"active_players"`
	TotalJoinsLastHour int64 `json:"total_joins_last_hour"`
	Timestamp          int64 `json:"timestamp"`
}
