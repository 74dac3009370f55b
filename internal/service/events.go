package service

import (
	"log"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

// EventBroadcaster рассылает события в комнату викторины
type EventBroadcaster interface {
	BroadcastEventToQuiz(quizID uint, eventType string, data interface{}) error
}

// ParticipantJoinedEvent - данные события quiz:participant_joined
type ParticipantJoinedEvent struct {
	QuizID          uint   `json:"quiz_id"`
	ParticipantID   uint   `json:"participant_id"`
	ParticipantName string `json:"participant_name"`
	AttemptID       uint   `json:"attempt_id"`
}

// AttemptCompletedEvent - данные события quiz:attempt_completed
type AttemptCompletedEvent struct {
	QuizID        uint  `json:"quiz_id"`
	AttemptID     uint  `json:"attempt_id"`
	ParticipantID uint  `json:"participant_id"`
	Score         int   `json:"score"`
	TotalTimeMs   int64 `json:"total_time_ms"`
}

// LeaderboardUpdatedEvent - данные события quiz:leaderboard_updated
type LeaderboardUpdatedEvent struct {
	QuizID    uint                    `json:"quiz_id"`
	Mode      entity.LeaderboardMode  `json:"mode"`
	Standings []entity.AttemptSummary `json:"standings"`
}

// QuizEndedEvent - данные события quiz:ended
type QuizEndedEvent struct {
	QuizID  uint  `json:"quiz_id"`
	EndedAt int64 `json:"ended_at"`
}

// broadcast отправляет событие, если рассылка настроена. Ошибки не влияют на вызывающего.
func broadcast(b EventBroadcaster, quizID uint, eventType string, data interface{}) {
	if b == nil {
		return
	}
	if err := b.BroadcastEventToQuiz(quizID, eventType, data); err != nil {
		log.Printf("[Events] WARNING: failed to broadcast %s for quiz #%d: %v", eventType, quizID, err)
	}
}

var _ EventBroadcaster = (*websocket.Manager)(nil)
