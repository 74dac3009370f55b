package entity

import (
	"strings"
	"time"
)

// Participant - участник события. Уникален по (event_id, email).
type Participant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;index" json:"event_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Participant) TableName() string {
	return "participants"
}

// NormalizeEmail приводит email к виду, по которому проверяется уникальность
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Attempt - единственный проход участника по вопросам викторины
type Attempt struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	QuizID          uint         `gorm:"not null;uniqueIndex:idx_attempt_quiz_participant,priority:1" json:"quiz_id"`
	ParticipantID   uint         `gorm:"not null;uniqueIndex:idx_attempt_quiz_participant,priority:2" json:"participant_id"`
	CurrentQuestion int          `gorm:"not null;default:1" json:"current_question"`
	Score           int          `gorm:"not null;default:0" json:"score"`
	TotalTimeMs     int64        `gorm:"not null;default:0" json:"total_time_ms"`
	IsCompleted     bool         `gorm:"not null;default:false;index" json:"is_completed"`
	StartedAt       time.Time    `gorm:"not null" json:"started_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	Participant     *Participant `gorm:"foreignKey:ParticipantID" json:"participant,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Attempt) TableName() string {
	return "quiz_attempts"
}

// NewAttempt создает попытку в начальном состоянии
func NewAttempt(quizID, participantID uint, now time.Time) *Attempt {
	return &Attempt{
		QuizID:          quizID,
		ParticipantID:   participantID,
		CurrentQuestion: 1,
		Score:           0,
		IsCompleted:     false,
		StartedAt:       now,
	}
}

// Progress возвращает номер вопроса, на котором находится участник, не больше total
func (a *Attempt) Progress(totalQuestions int) int {
	answered := a.CurrentQuestion - 1
	if answered > totalQuestions {
		return totalQuestions
	}
	if answered < 0 {
		return 0
	}
	return answered
}

// Answer - ответ попытки на конкретный вопрос. Уникален по (attempt_id, question_id).
type Answer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AttemptID      uint      `gorm:"not null;uniqueIndex:idx_answer_attempt_question,priority:1" json:"attempt_id"`
	QuestionID     uint      `gorm:"not null;uniqueIndex:idx_answer_attempt_question,priority:2" json:"question_id"`
	SelectedOption *int      `json:"selected_option"` // nil - вопрос пропущен
	IsCorrect      bool      `gorm:"not null" json:"is_correct"`
	TimeTakenMs    int64     `gorm:"not null;default:0" json:"time_taken_ms"`
	AnsweredAt     time.Time `gorm:"not null" json:"answered_at"`
}

// TableName определяет имя таблицы для GORM
func (Answer) TableName() string {
	return "quiz_answers"
}

// AnswerApplication описывает атомарное применение одного ответа к попытке
type AnswerApplication struct {
	AttemptID       uint
	QuestionID      uint
	QuestionOrdinal int
	TotalQuestions  int
	SelectedOption  *int
	IsCorrect       bool
	Points          int
	TimeTakenMs     int64
	AnsweredAt      time.Time
}

// Apply применяет ответ к попытке в памяти. Хранилища используют ту же арифметику.
func (a *Attempt) Apply(app AnswerApplication) {
	if app.IsCorrect {
		a.Score += app.Points
	}
	a.CurrentQuestion++
	a.TotalTimeMs += app.TimeTakenMs
	if a.CurrentQuestion > app.TotalQuestions {
		a.IsCompleted = true
		completedAt := app.AnsweredAt
		a.CompletedAt = &completedAt
	}
}
