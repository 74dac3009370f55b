package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный или отсутствующий токен).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, добавление вопросов в запущенную викторину).
	ErrConflict = errors.New("resource state conflict")
)

// Ошибки участия в викторине. Каждая из них - отдельный вид отказа,
// который клиент может отличить по error_type.
var (
	// ErrRateLimited - превышен лимит попыток подключения с одного адреса.
	ErrRateLimited = errors.New("rate_limited")

	// ErrQuizInactive - викторина еще не активна.
	ErrQuizInactive = errors.New("quiz_inactive")

	// ErrQuizEnded - викторина завершена.
	ErrQuizEnded = errors.New("quiz_ended")

	// ErrQuizFull - достигнут лимит участников.
	ErrQuizFull = errors.New("quiz_full")

	// ErrAlreadyCompleted - участник уже прошел викторину.
	ErrAlreadyCompleted = errors.New("already_completed")

	// ErrDuplicateAnswer - на этот вопрос уже есть ответ.
	ErrDuplicateAnswer = errors.New("duplicate_answer")

	// ErrStaleQuestion - ответ не на текущий вопрос попытки.
	ErrStaleQuestion = errors.New("stale_question")

	// ErrSubmissionBusy - ответ на этот вопрос уже обрабатывается.
	ErrSubmissionBusy = errors.New("submission_busy")

	// ErrStoreUnavailable - хранилище не ответило вовремя или недоступно.
	ErrStoreUnavailable = errors.New("store_unavailable")
)
