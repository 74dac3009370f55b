package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

// MaxQuestionsPerQuiz ограничивает количество вопросов в одной викторине
const MaxQuestionsPerQuiz = 100

// CreateQuizInput - параметры новой викторины
type CreateQuizInput struct {
	EventID            uint
	Title              string
	TimePerQuestionSec int
	TotalTimeLimitSec  *int
	ParticipantLimit   int
}

// QuestionInput - вопрос, добавляемый администратором
type QuestionInput struct {
	Text          string
	Options       []string
	CorrectOption int
	Points        int
	TimeLimitSec  *int
}

// MetadataInvalidator сбрасывает кеш метаданных викторины
type MetadataInvalidator interface {
	Invalidate(ctx context.Context, quizID uint)
}

// QuizService управляет жизненным циклом викторин
type QuizService struct {
	quizRepo         repository.QuizRepository
	questionRepo     repository.QuestionRepository
	cache            MetadataInvalidator
	broadcaster      EventBroadcaster
	clock            clockwork.Clock
	defaultTimeLimit int
	defaultCapacity  int
}

// NewQuizService создает новый сервис викторин
func NewQuizService(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	cache MetadataInvalidator,
	broadcaster EventBroadcaster,
	clock clockwork.Clock,
	defaultParticipantLimit int,
) *QuizService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if defaultParticipantLimit <= 0 {
		defaultParticipantLimit = entity.DefaultParticipantLimit
	}
	return &QuizService{
		quizRepo:         quizRepo,
		questionRepo:     questionRepo,
		cache:            cache,
		broadcaster:      broadcaster,
		clock:            clock,
		defaultTimeLimit: 30,
		defaultCapacity:  defaultParticipantLimit,
	}
}

// CreateQuiz создает новую викторину события
func (s *QuizService) CreateQuiz(ctx context.Context, input CreateQuizInput) (*entity.Quiz, error) {
	title := strings.TrimSpace(input.Title)
	switch {
	case input.EventID == 0:
		return nil, validationError("event_id is required")
	case title == "":
		return nil, validationError("title is required")
	case len(title) > maxTitleLength:
		return nil, validationError("title must be at most %d characters", maxTitleLength)
	case input.TimePerQuestionSec < 0 || input.ParticipantLimit < 0:
		return nil, validationError("limits must not be negative")
	case input.TotalTimeLimitSec != nil && *input.TotalTimeLimitSec <= 0:
		return nil, validationError("total_time_limit_sec must be positive")
	}

	quiz := &entity.Quiz{
		EventID:            input.EventID,
		Title:              title,
		TimePerQuestionSec: input.TimePerQuestionSec,
		TotalTimeLimitSec:  input.TotalTimeLimitSec,
		ParticipantLimit:   input.ParticipantLimit,
	}
	// Используем дефолты, если значения не указаны
	if quiz.TimePerQuestionSec == 0 {
		quiz.TimePerQuestionSec = s.defaultTimeLimit
	}
	if quiz.ParticipantLimit == 0 {
		quiz.ParticipantLimit = s.defaultCapacity
	}

	if err := s.quizRepo.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}
	log.Printf("[QuizService] Quiz #%d created for event #%d (limit %d)", quiz.ID, quiz.EventID, quiz.ParticipantLimit)
	return quiz, nil
}

// GetQuiz возвращает викторину по ID
func (s *QuizService) GetQuiz(ctx context.Context, quizID uint) (*entity.Quiz, error) {
	return s.quizRepo.GetByID(ctx, quizID)
}

// ListQuizzes возвращает страницу викторин
func (s *QuizService) ListQuizzes(ctx context.Context, page, pageSize int) ([]entity.Quiz, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.quizRepo.List(ctx, pageSize, (page-1)*pageSize)
}

// AddQuestions добавляет вопросы к еще не запущенной викторине
func (s *QuizService) AddQuestions(ctx context.Context, quizID uint, inputs []QuestionInput) ([]entity.Question, error) {
	if len(inputs) == 0 {
		return nil, validationError("at least one question is required")
	}

	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.IsStarted {
		return nil, fmt.Errorf("%w: questions can only be added before the quiz starts", apperrors.ErrConflict)
	}
	if quiz.QuestionCount+len(inputs) > MaxQuestionsPerQuiz {
		return nil, validationError("максимальное количество вопросов – %d", MaxQuestionsPerQuiz)
	}

	questions := make([]entity.Question, len(inputs))
	for i, in := range inputs {
		q, err := buildQuestion(in)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions[i] = q
	}

	if err := s.questionRepo.AppendBatch(ctx, quizID, questions); err != nil {
		if errors.Is(err, repository.ErrQuizAlreadyStarted) {
			return nil, fmt.Errorf("%w: questions can only be added before the quiz starts", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to add questions: %w", err)
	}

	s.cache.Invalidate(ctx, quizID)
	return questions, nil
}

func buildQuestion(in QuestionInput) (entity.Question, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return entity.Question{}, validationError("text is required")
	}
	if len(in.Options) != entity.OptionsPerQuestion {
		return entity.Question{}, validationError("exactly %d options are required", entity.OptionsPerQuestion)
	}
	for _, opt := range in.Options {
		if strings.TrimSpace(opt) == "" {
			return entity.Question{}, validationError("options must not be empty")
		}
	}
	if in.CorrectOption < 0 || in.CorrectOption >= entity.OptionsPerQuestion {
		return entity.Question{}, validationError("correct_option must be between 0 and %d", entity.OptionsPerQuestion-1)
	}
	if in.TimeLimitSec != nil && *in.TimeLimitSec <= 0 {
		return entity.Question{}, validationError("time_limit_sec must be positive")
	}

	points := in.Points
	if points <= 0 {
		points = 1
	}
	return entity.Question{
		Text:          text,
		Options:       entity.StringArray(in.Options),
		CorrectOption: in.CorrectOption,
		Points:        points,
		TimeLimitSec:  in.TimeLimitSec,
	}, nil
}

// ListQuestions возвращает вопросы викторины по порядку
func (s *QuizService) ListQuestions(ctx context.Context, quizID uint) ([]entity.Question, error) {
	if _, err := s.quizRepo.GetByID(ctx, quizID); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByQuiz(ctx, quizID)
}

// StartQuiz открывает викторину для участников
func (s *QuizService) StartQuiz(ctx context.Context, quizID uint) (*entity.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.QuestionCount == 0 {
		return nil, validationError("quiz has no questions")
	}

	if err := s.quizRepo.Start(ctx, quizID, s.clock.Now()); err != nil {
		if errors.Is(err, repository.ErrQuizAlreadyEnded) {
			return nil, fmt.Errorf("%w: quiz has already ended", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to start quiz: %w", err)
	}
	s.cache.Invalidate(ctx, quizID)

	log.Printf("[QuizService] Quiz #%d started", quizID)
	return s.quizRepo.GetByID(ctx, quizID)
}

// EndQuiz завершает викторину и оповещает комнату
func (s *QuizService) EndQuiz(ctx context.Context, quizID uint) (*entity.Quiz, error) {
	now := s.clock.Now()
	if err := s.quizRepo.End(ctx, quizID, now); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, quizID)

	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	endedAt := now
	if quiz.EndedAt != nil {
		endedAt = *quiz.EndedAt
	}
	broadcast(s.broadcaster, quizID, websocket.EventQuizEnded, QuizEndedEvent{QuizID: quizID, EndedAt: endedAt.Unix()})

	log.Printf("[QuizService] Quiz #%d ended", quizID)
	return quiz, nil
}

// UpdateSettings меняет лимиты викторины. Уменьшение лимита ниже числа
// уже созданных попыток не удаляет их, но новые подключения будут отклонены.
func (s *QuizService) UpdateSettings(ctx context.Context, quizID uint, settings repository.QuizSettings) (*entity.Quiz, error) {
	if settings.Title != nil {
		title := strings.TrimSpace(*settings.Title)
		if title == "" || len(title) > maxTitleLength {
			return nil, validationError("title must be 1..%d characters", maxTitleLength)
		}
		settings.Title = &title
	}
	if settings.ParticipantLimit != nil && *settings.ParticipantLimit <= 0 {
		return nil, validationError("participant_limit must be positive")
	}
	if settings.TimePerQuestionSec != nil && *settings.TimePerQuestionSec <= 0 {
		return nil, validationError("time_per_question_sec must be positive")
	}
	if settings.TotalTimeLimitSec != nil && *settings.TotalTimeLimitSec <= 0 {
		return nil, validationError("total_time_limit_sec must be positive")
	}

	if err := s.quizRepo.UpdateSettings(ctx, quizID, settings); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, quizID)
	return s.quizRepo.GetByID(ctx, quizID)
}
