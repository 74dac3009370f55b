package service

import (
	"context"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/service/quizengine"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

// JoinResult - попытка, с которой участник продолжает викторину
type JoinResult struct {
	Attempt *entity.Attempt
	Resumed bool
}

// CurrentQuestion - состояние попытки для клиента.
// Если Completed, Question == nil, а Summary содержит итог.
type CurrentQuestion struct {
	Attempt        *entity.Attempt
	Question       *entity.Question
	TotalQuestions int
	TimeLimit      time.Duration
	Completed      bool
	Summary        *entity.AttemptSummary
}

// ParticipationService связывает клиентские запросы с компонентами движка
type ParticipationService struct {
	engine          *quizengine.Engine
	quizRepo        repository.QuizRepository
	questionRepo    repository.QuestionRepository
	participantRepo repository.ParticipantRepository
	attemptRepo     repository.AttemptRepository
	broadcaster     EventBroadcaster
}

// NewParticipationService создает сервис участия
func NewParticipationService(
	engine *quizengine.Engine,
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	participantRepo repository.ParticipantRepository,
	attemptRepo repository.AttemptRepository,
	broadcaster EventBroadcaster,
) *ParticipationService {
	return &ParticipationService{
		engine:          engine,
		quizRepo:        quizRepo,
		questionRepo:    questionRepo,
		participantRepo: participantRepo,
		attemptRepo:     attemptRepo,
		broadcaster:     broadcaster,
	}
}

// Join подключает участника к викторине. Частота подключений ограничивается
// на уровне HTTP до вызова сервиса.
func (s *ParticipationService) Join(ctx context.Context, quizID uint, name, email string) (*JoinResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := validateParticipant(name, email); err != nil {
		return nil, err
	}

	// Снимок из кеша; при промахе он строится по хранилищу и кешируется
	snapshot, err := s.engine.Cache.Resolve(ctx, quizID)
	if err != nil {
		return nil, err
	}
	// Участника не создаем, пока викторина закрыта
	if err := quizengine.ClosedQuizError(snapshot); err != nil {
		return nil, err
	}

	participant, err := s.participantRepo.GetOrCreate(ctx, snapshot.EventID, name, email)
	if err != nil {
		return nil, err
	}

	joined, err := s.engine.Capacity.TryJoin(ctx, snapshot, participant)
	if err != nil {
		return nil, err
	}

	s.engine.Stats.RecordEvent(ctx, quizID, participant.ID, entity.EventJoin)

	resumed := joined.Outcome == quizengine.JoinResumed
	if !resumed {
		broadcast(s.broadcaster, quizID, websocket.EventParticipantJoined, ParticipantJoinedEvent{
			QuizID:          quizID,
			ParticipantID:   participant.ID,
			ParticipantName: participant.Name,
			AttemptID:       joined.Attempt.ID,
		})
	}
	return &JoinResult{Attempt: joined.Attempt, Resumed: resumed}, nil
}

func validateParticipant(name, email string) error {
	if name == "" {
		return validationError("name is required")
	}
	if len(name) > maxNameLength {
		return validationError("name must be at most %d characters", maxNameLength)
	}
	if email == "" {
		return validationError("email is required")
	}
	if len(email) > maxEmailLength {
		return validationError("email must be at most %d characters", maxEmailLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return validationError("invalid email address")
	}
	return nil
}

// CurrentQuestion возвращает вопрос, на котором находится попытка, или итог завершенной попытки
func (s *ParticipationService) CurrentQuestion(ctx context.Context, attemptID uint) (*CurrentQuestion, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizRepo.GetByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	view := &CurrentQuestion{Attempt: attempt, TotalQuestions: quiz.QuestionCount}
	if attempt.IsCompleted {
		view.Completed = true
		summaries := entity.BuildStandings([]entity.Attempt{*attempt}, quiz.QuestionCount, 1)
		view.Summary = &summaries[0]
		return view, nil
	}

	question, err := s.questionRepo.GetByOrdinal(ctx, attempt.QuizID, attempt.CurrentQuestion)
	if err != nil {
		return nil, err
	}
	view.Question = question
	view.TimeLimit = question.EffectiveTimeLimit(quiz.TimePerQuestionSec)
	return view, nil
}

// SubmitAnswer принимает ответ и рассылает события при завершении попытки
func (s *ParticipationService) SubmitAnswer(ctx context.Context, req quizengine.SubmitRequest) (*quizengine.SubmitResult, error) {
	result, err := s.engine.Scoring.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	attempt := result.Attempt
	if !result.Completed {
		s.engine.Stats.RecordEvent(ctx, attempt.QuizID, attempt.ParticipantID, entity.EventAnswer)
		return result, nil
	}

	s.engine.Stats.RecordEvent(ctx, attempt.QuizID, attempt.ParticipantID, entity.EventComplete)
	broadcast(s.broadcaster, attempt.QuizID, websocket.EventAttemptCompleted, AttemptCompletedEvent{
		QuizID:        attempt.QuizID,
		AttemptID:     attempt.ID,
		ParticipantID: attempt.ParticipantID,
		Score:         attempt.Score,
		TotalTimeMs:   attempt.TotalTimeMs,
	})
	s.broadcastLeaderboard(ctx, attempt.QuizID)
	return result, nil
}

// broadcastLeaderboard рассылает итоговый рейтинг. Ошибка хранилища только логируется:
// ответ уже принят.
func (s *ParticipationService) broadcastLeaderboard(ctx context.Context, quizID uint) {
	standings, err := s.engine.Leaderboard.Rank(ctx, quizID, entity.LeaderboardCompleted)
	if err != nil {
		log.Printf("[ParticipationService] WARNING: failed to rank quiz #%d for broadcast: %v", quizID, err)
		return
	}
	broadcast(s.broadcaster, quizID, websocket.EventLeaderboardUpdated, LeaderboardUpdatedEvent{
		QuizID:    quizID,
		Mode:      entity.LeaderboardCompleted,
		Standings: standings,
	})
}

// Leaderboard возвращает рейтинг викторины
func (s *ParticipationService) Leaderboard(ctx context.Context, quizID uint, mode entity.LeaderboardMode) ([]entity.AttemptSummary, error) {
	return s.engine.Leaderboard.Rank(ctx, quizID, mode)
}

// ExportStandings возвращает полный рейтинг для выгрузки
func (s *ParticipationService) ExportStandings(ctx context.Context, quizID uint, mode entity.LeaderboardMode) (*entity.Quiz, []entity.AttemptSummary, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	standings, err := s.engine.Leaderboard.RankN(ctx, quizID, mode, 0)
	if err != nil {
		return nil, nil, err
	}
	return quiz, standings, nil
}

// Stats возвращает рекомендательную статистику участия
func (s *ParticipationService) Stats(ctx context.Context, quizID uint) (entity.LiveStats, error) {
	if _, err := s.engine.Cache.Resolve(ctx, quizID); err != nil {
		return entity.LiveStats{}, err
	}
	return s.engine.Stats.LiveStats(ctx, quizID), nil
}

// QuizMetadata возвращает снимок викторины, сначала из кеша
func (s *ParticipationService) QuizMetadata(ctx context.Context, quizID uint) (*entity.QuizSnapshot, error) {
	return s.engine.Cache.Resolve(ctx, quizID)
}
