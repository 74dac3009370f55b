package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// OptionsPerQuestion - количество вариантов ответа в вопросе
const OptionsPerQuestion = 4

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	if value == nil {
		*o = StringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Question представляет вопрос викторины с порядковым номером 1..N
type Question struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	QuizID        uint        `gorm:"not null;uniqueIndex:idx_quiz_question_ordinal,priority:1" json:"quiz_id"`
	Ordinal       int         `gorm:"not null;uniqueIndex:idx_quiz_question_ordinal,priority:2" json:"ordinal"`
	Text          string      `gorm:"size:1000;not null" json:"text"`
	Options       StringArray `gorm:"type:jsonb;not null" json:"options"`
	CorrectOption int         `gorm:"not null" json:"-"` // Скрыто от клиента
	Points        int         `gorm:"not null;default:1" json:"points"`
	TimeLimitSec  *int        `json:"time_limit_sec,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "quiz_questions"
}

// IsCorrect проверяет выбранный вариант. Пропуск (nil) всегда неверен.
func (q *Question) IsCorrect(selectedOption *int) bool {
	return selectedOption != nil && *selectedOption == q.CorrectOption
}

// PointsFor возвращает очки за ответ
func (q *Question) PointsFor(isCorrect bool) int {
	if !isCorrect {
		return 0
	}
	return q.Points
}

// IsValidOption проверяет, является ли выбранный вариант допустимым
func (q *Question) IsValidOption(selectedOption int) bool {
	return selectedOption >= 0 && selectedOption < len(q.Options)
}

// EffectiveTimeLimit возвращает лимит времени вопроса: собственный или викторины
func (q *Question) EffectiveTimeLimit(quizDefaultSec int) time.Duration {
	if q.TimeLimitSec != nil && *q.TimeLimitSec > 0 {
		return time.Duration(*q.TimeLimitSec) * time.Second
	}
	return time.Duration(quizDefaultSec) * time.Second
}
