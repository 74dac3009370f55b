package helper

import (
	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// QuestionOption представляет вариант ответа для фронтенда
type QuestionOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// ConvertOptionsToObjects преобразует массив строк в массив объектов с id и text.
// ID - 0-based индекс, совпадающий с selected_option в ответе участника.
func ConvertOptionsToObjects(options entity.StringArray) []QuestionOption {
	converted := make([]QuestionOption, len(options))
	for i, opt := range options {
		if opt == "" {
			opt = "(пустой вариант)"
		}
		converted[i] = QuestionOption{ID: i, Text: opt}
	}
	return converted
}

// IntValue возвращает значение указателя или def
func IntValue(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
