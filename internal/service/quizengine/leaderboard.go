package quizengine

import (
	"context"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
)

// LeaderboardRanker строит рейтинг по авторитетному хранилищу, минуя кеш.
// Позиции вычисляются заново на каждый запрос.
type LeaderboardRanker struct {
	quizRepo    repository.QuizRepository
	attemptRepo repository.AttemptRepository
	limit       int
}

// NewLeaderboardRanker создает ранжировщик
func NewLeaderboardRanker(config *Config, deps *Dependencies) *LeaderboardRanker {
	return &LeaderboardRanker{
		quizRepo:    deps.QuizRepo,
		attemptRepo: deps.AttemptRepo,
		limit:       config.LeaderboardLimit,
	}
}

// Rank возвращает рейтинг викторины в режиме mode, не длиннее лимита
func (r *LeaderboardRanker) Rank(ctx context.Context, quizID uint, mode entity.LeaderboardMode) ([]entity.AttemptSummary, error) {
	return r.RankN(ctx, quizID, mode, r.limit)
}

// RankN возвращает не больше limit строк рейтинга (0 - все попытки)
func (r *LeaderboardRanker) RankN(ctx context.Context, quizID uint, mode entity.LeaderboardMode, limit int) ([]entity.AttemptSummary, error) {
	quiz, err := r.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, storeFailure("load quiz", err)
	}

	attempts, err := r.attemptRepo.ListStandings(ctx, quizID, mode, limit)
	if err != nil {
		return nil, storeFailure("list standings", err)
	}

	// Один и тот же компаратор для любого хранилища
	ordered := entity.SortStandings(mode, attempts)
	return entity.BuildStandings(ordered, quiz.QuestionCount, limit), nil
}
