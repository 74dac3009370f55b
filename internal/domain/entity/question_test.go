package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestQuestion_IsCorrect_CorrectAnswer(t *testing.T) {
	// Arrange
	question := &Question{
		ID:            1,
		QuizID:        1,
		Ordinal:       1,
		Text:          "Какой язык используется в Go?",
		Options:       StringArray{"Python", "Go", "Java", "Rust"},
		CorrectOption: 1, // "Go" - индекс 1
		Points:        10,
	}

	// Act & Assert
	assert.True(t, question.IsCorrect(intPtr(1)), "IsCorrect должен вернуть true для правильного ответа")
}

func TestQuestion_IsCorrect_IncorrectAnswer(t *testing.T) {
	// Arrange
	question := &Question{
		ID:            1,
		CorrectOption: 2,
	}

	// Act & Assert
	assert.False(t, question.IsCorrect(intPtr(0)), "IsCorrect должен вернуть false для неправильного ответа")
	assert.False(t, question.IsCorrect(intPtr(1)), "IsCorrect должен вернуть false для неправильного ответа")
	assert.False(t, question.IsCorrect(intPtr(3)), "IsCorrect должен вернуть false для неправильного ответа")
}

func TestQuestion_IsCorrect_SkippedIsNeverCorrect(t *testing.T) {
	question := &Question{CorrectOption: 0}

	assert.False(t, question.IsCorrect(nil), "Пропущенный вопрос не может быть правильным")
}

func TestQuestion_IsValidOption(t *testing.T) {
	// Arrange
	question := &Question{
		Options: StringArray{"A", "B", "C", "D"},
	}

	// Act & Assert: валидные опции
	for i := 0; i < OptionsPerQuestion; i++ {
		assert.True(t, question.IsValidOption(i), "Индекс %d должен быть валидным", i)
	}

	// Assert: невалидные опции
	assert.False(t, question.IsValidOption(-1), "Отрицательный индекс должен быть невалидным")
	assert.False(t, question.IsValidOption(4), "Индекс вне диапазона должен быть невалидным")
}

func TestQuestion_PointsFor(t *testing.T) {
	question := &Question{Points: 10}

	assert.Equal(t, 10, question.PointsFor(true))
	assert.Equal(t, 0, question.PointsFor(false), "За неверный ответ очки не начисляются")
}

func TestQuestion_EffectiveTimeLimit(t *testing.T) {
	withOverride := &Question{TimeLimitSec: intPtr(15)}
	withoutOverride := &Question{}

	assert.Equal(t, 15*time.Second, withOverride.EffectiveTimeLimit(30))
	assert.Equal(t, 30*time.Second, withoutOverride.EffectiveTimeLimit(30))
}

func TestStringArray_ScanValue(t *testing.T) {
	// Arrange
	original := StringArray{"A", "B", "C", "D"}

	// Act
	value, err := original.Value()
	require.NoError(t, err)

	var scanned StringArray
	require.NoError(t, scanned.Scan(value))

	// Assert
	assert.Equal(t, original, scanned)

	var fromString StringArray
	require.NoError(t, fromString.Scan(`["x","y"]`))
	assert.Equal(t, StringArray{"x", "y"}, fromString)

	var fromNil StringArray
	require.NoError(t, fromNil.Scan(nil))
	assert.Empty(t, fromNil)
}
