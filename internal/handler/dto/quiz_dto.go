package dto

import (
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/handler/helper"
	"github.com/yourusername/livequiz-api/internal/service"
	"github.com/yourusername/livequiz-api/internal/service/quizengine"
)

// JoinQuizRequest - запрос на подключение к викторине
type JoinQuizRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,max=255"`
}

// SubmitAnswerRequest - ответ участника. selected_option == null означает пропуск.
type SubmitAnswerRequest struct {
	QuestionID     uint  `json:"question_id" binding:"required"`
	SelectedOption *int  `json:"selected_option"`
	TimeTakenMs    int64 `json:"time_taken_ms"`
}

// CreateQuizRequest - запрос администратора на создание викторины
type CreateQuizRequest struct {
	EventID            uint   `json:"event_id" binding:"required"`
	Title              string `json:"title" binding:"required,max=200"`
	TimePerQuestionSec int    `json:"time_per_question_sec"`
	TotalTimeLimitSec  *int   `json:"total_time_limit_sec"`
	ParticipantLimit   int    `json:"participant_limit"`
}

// QuestionRequest - вопрос в запросе на добавление
type QuestionRequest struct {
	Text          string   `json:"text" binding:"required,max=1000"`
	Options       []string `json:"options" binding:"required"`
	CorrectOption int      `json:"correct_option"`
	Points        int      `json:"points"`
	TimeLimitSec  *int     `json:"time_limit_sec"`
}

// AddQuestionsRequest - запрос на добавление вопросов
type AddQuestionsRequest struct {
	Questions []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// UpdateSettingsRequest - точечное изменение настроек викторины
type UpdateSettingsRequest struct {
	Title              *string `json:"title"`
	ParticipantLimit   *int    `json:"participant_limit"`
	TimePerQuestionSec *int    `json:"time_per_question_sec"`
	TotalTimeLimitSec  *int    `json:"total_time_limit_sec"`
}

// AttemptResponse - состояние попытки
type AttemptResponse struct {
	ID              uint       `json:"id"`
	QuizID          uint       `json:"quiz_id"`
	ParticipantID   uint       `json:"participant_id"`
	CurrentQuestion int        `json:"current_question"`
	Score           int        `json:"score"`
	TotalTimeMs     int64      `json:"total_time_ms"`
	IsCompleted     bool       `json:"is_completed"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// JoinResponse - результат подключения
type JoinResponse struct {
	Attempt AttemptResponse `json:"attempt"`
	Resumed bool            `json:"resumed"`
}

// QuestionResponse - вопрос без правильного ответа
type QuestionResponse struct {
	ID           uint                    `json:"id"`
	QuizID       uint                    `json:"quiz_id"`
	Ordinal      int                     `json:"ordinal"`
	Text         string                  `json:"text"`
	Options      []helper.QuestionOption `json:"options"`
	Points       int                     `json:"points"`
	TimeLimitSec int                     `json:"time_limit_sec"`
}

// AdminQuestionResponse - вопрос для администратора, с правильным ответом
type AdminQuestionResponse struct {
	QuestionResponse
	CorrectOption int `json:"correct_option"`
}

// CurrentQuestionResponse - текущий вопрос попытки или итог завершенной
type CurrentQuestionResponse struct {
	AttemptID      uint                   `json:"attempt_id"`
	TotalQuestions int                    `json:"total_questions"`
	Completed      bool                   `json:"completed"`
	Question       *QuestionResponse      `json:"question,omitempty"`
	Summary        *entity.AttemptSummary `json:"summary,omitempty"`
}

// SubmitAnswerResponse - результат ответа
type SubmitAnswerResponse struct {
	Correct         bool `json:"correct"`
	Score           int  `json:"score"`
	CurrentQuestion int  `json:"current_question"`
	Completed       bool `json:"completed"`
}

// LeaderboardResponse - рейтинг викторины
type LeaderboardResponse struct {
	QuizID    uint                    `json:"quiz_id"`
	Mode      entity.LeaderboardMode  `json:"mode"`
	Standings []entity.AttemptSummary `json:"standings"`
}

// QuizResponse - викторина для администратора
type QuizResponse struct {
	ID                 uint       `json:"id"`
	EventID            uint       `json:"event_id"`
	Title              string     `json:"title"`
	TimePerQuestionSec int        `json:"time_per_question_sec"`
	TotalTimeLimitSec  *int       `json:"total_time_limit_sec,omitempty"`
	ParticipantLimit   int        `json:"participant_limit"`
	QuestionCount      int        `json:"question_count"`
	IsActive           bool       `json:"is_active"`
	IsStarted          bool       `json:"is_started"`
	IsEnded            bool       `json:"is_ended"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// NewAttemptResponse создает DTO попытки
func NewAttemptResponse(a *entity.Attempt) AttemptResponse {
	return AttemptResponse{
		ID:              a.ID,
		QuizID:          a.QuizID,
		ParticipantID:   a.ParticipantID,
		CurrentQuestion: a.CurrentQuestion,
		Score:           a.Score,
		TotalTimeMs:     a.TotalTimeMs,
		IsCompleted:     a.IsCompleted,
		StartedAt:       a.StartedAt,
		CompletedAt:     a.CompletedAt,
	}
}

// NewJoinResponse создает DTO результата подключения
func NewJoinResponse(r *service.JoinResult) JoinResponse {
	return JoinResponse{Attempt: NewAttemptResponse(r.Attempt), Resumed: r.Resumed}
}

// NewQuestionResponse создает DTO вопроса. timeLimitSec - действующий лимит времени.
func NewQuestionResponse(q *entity.Question, timeLimitSec int) *QuestionResponse {
	return &QuestionResponse{
		ID:           q.ID,
		QuizID:       q.QuizID,
		Ordinal:      q.Ordinal,
		Text:         q.Text,
		Options:      helper.ConvertOptionsToObjects(q.Options),
		Points:       q.Points,
		TimeLimitSec: timeLimitSec,
	}
}

// NewAdminQuestionResponses создает DTO вопросов для администратора
func NewAdminQuestionResponses(questions []entity.Question, quizDefaultSec int) []AdminQuestionResponse {
	out := make([]AdminQuestionResponse, len(questions))
	for i := range questions {
		q := &questions[i]
		out[i] = AdminQuestionResponse{
			QuestionResponse: *NewQuestionResponse(q, helper.IntValue(q.TimeLimitSec, quizDefaultSec)),
			CorrectOption:    q.CorrectOption,
		}
	}
	return out
}

// NewCurrentQuestionResponse создает DTO текущего вопроса
func NewCurrentQuestionResponse(view *service.CurrentQuestion) CurrentQuestionResponse {
	resp := CurrentQuestionResponse{
		AttemptID:      view.Attempt.ID,
		TotalQuestions: view.TotalQuestions,
		Completed:      view.Completed,
		Summary:        view.Summary,
	}
	if view.Question != nil {
		resp.Question = NewQuestionResponse(view.Question, int(view.TimeLimit.Seconds()))
	}
	return resp
}

// NewSubmitAnswerResponse создает DTO результата ответа
func NewSubmitAnswerResponse(r *quizengine.SubmitResult) SubmitAnswerResponse {
	return SubmitAnswerResponse{
		Correct:         r.Correct,
		Score:           r.Score,
		CurrentQuestion: r.CurrentQuestion,
		Completed:       r.Completed,
	}
}

// NewQuizResponse создает DTO викторины
func NewQuizResponse(q *entity.Quiz) QuizResponse {
	return QuizResponse{
		ID:                 q.ID,
		EventID:            q.EventID,
		Title:              q.Title,
		TimePerQuestionSec: q.TimePerQuestionSec,
		TotalTimeLimitSec:  q.TotalTimeLimitSec,
		ParticipantLimit:   q.Capacity(),
		QuestionCount:      q.QuestionCount,
		IsActive:           q.IsActive,
		IsStarted:          q.IsStarted,
		IsEnded:            q.IsEnded,
		StartedAt:          q.StartedAt,
		EndedAt:            q.EndedAt,
		CreatedAt:          q.CreatedAt,
	}
}

// NewListQuizResponse создает DTO списка викторин
func NewListQuizResponse(quizzes []entity.Quiz) []QuizResponse {
	out := make([]QuizResponse, len(quizzes))
	for i := range quizzes {
		out[i] = NewQuizResponse(&quizzes[i])
	}
	return out
}

// ToQuestionInputs преобразует запрос в параметры сервиса
func (r AddQuestionsRequest) ToQuestionInputs() []service.QuestionInput {
	inputs := make([]service.QuestionInput, len(r.Questions))
	for i, q := range r.Questions {
		inputs[i] = service.QuestionInput{
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Points:        q.Points,
			TimeLimitSec:  q.TimeLimitSec,
		}
	}
	return inputs
}
