package entity

import (
	"time"
)

// DefaultParticipantLimit - лимит участников по умолчанию (как в миграции participant_limit)
const DefaultParticipantLimit = 100

// Quiz представляет викторину события
type Quiz struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	EventID            uint       `gorm:"not null;uniqueIndex" json:"event_id"`
	Title              string     `gorm:"size:200;not null" json:"title"`
	TimePerQuestionSec int        `gorm:"not null;default:30" json:"time_per_question_sec"`
	TotalTimeLimitSec  *int       `json:"total_time_limit_sec,omitempty"`
	ParticipantLimit   int        `gorm:"not null;default:100" json:"participant_limit"`
	QuestionCount      int        `gorm:"not null;default:0" json:"question_count"`
	IsActive           bool       `gorm:"not null;default:false" json:"is_active"`
	IsStarted          bool       `gorm:"not null;default:false" json:"is_started"`
	IsEnded            bool       `gorm:"not null;default:false" json:"is_ended"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	Questions          []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// IsOpen проверяет, принимает ли викторина подключения и ответы
func (q *Quiz) IsOpen() bool {
	return q.IsActive && !q.IsEnded
}

// Capacity возвращает лимит участников с учетом значения по умолчанию
func (q *Quiz) Capacity() int {
	if q.ParticipantLimit <= 0 {
		return DefaultParticipantLimit
	}
	return q.ParticipantLimit
}

// Snapshot формирует краткую копию состояния для кеша метаданных
func (q *Quiz) Snapshot(attemptCount int64) *QuizSnapshot {
	return &QuizSnapshot{
		QuizID:           q.ID,
		EventID:          q.EventID,
		Title:            q.Title,
		IsActive:         q.IsActive,
		IsEnded:          q.IsEnded,
		TotalQuestions:   q.QuestionCount,
		ParticipantLimit: q.Capacity(),
		AttemptCount:     attemptCount,
	}
}

// QuizSnapshot - неавторитетный снимок викторины, который хранится в кеше.
// AttemptCount используется только для дешевой предварительной проверки заполненности.
type QuizSnapshot struct {
	QuizID           uint   `json:"quiz_id"`
	EventID          uint   `json:"event_id"`
	Title            string `json:"title"`
	IsActive         bool   `json:"is_active"`
	IsEnded          bool   `json:"is_ended"`
	TotalQuestions   int    `json:"total_questions"`
	ParticipantLimit int    `json:"participant_limit"`
	AttemptCount     int64  `json:"attempt_count"`
}

// IsOpen проверяет состояние викторины по снимку
func (s *QuizSnapshot) IsOpen() bool {
	return s.IsActive && !s.IsEnded
}

// LooksFull сообщает, что по кешу викторина уже заполнена
func (s *QuizSnapshot) LooksFull() bool {
	return s.ParticipantLimit > 0 && s.AttemptCount >= int64(s.ParticipantLimit)
}
