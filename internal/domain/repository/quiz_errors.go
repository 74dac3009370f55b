package repository

import "errors"

var (
	// ErrAttemptExists означает, что у участника уже есть попытка в этой викторине.
	ErrAttemptExists = errors.New("attempt already exists")
	// ErrCapacityReached означает, что достигнут лимит участников викторины.
	ErrCapacityReached = errors.New("participant limit reached")
	// ErrQuizNotActive означает, что викторина еще не активна.
	ErrQuizNotActive = errors.New("quiz is not active")
	// ErrQuizAlreadyEnded означает, что викторина уже завершена.
	ErrQuizAlreadyEnded = errors.New("quiz has ended")
	// ErrQuizAlreadyStarted означает, что викторина уже запущена и вопросы менять нельзя.
	ErrQuizAlreadyStarted = errors.New("quiz already started")
	// ErrAnswerExists означает, что на вопрос уже дан ответ в этой попытке.
	ErrAnswerExists = errors.New("answer already exists")
	// ErrOrdinalMismatch означает, что попытка находится на другом вопросе.
	ErrOrdinalMismatch = errors.New("question is not current for attempt")
	// ErrAttemptFinished означает, что попытка уже завершена.
	ErrAttemptFinished = errors.New("attempt already completed")
)
