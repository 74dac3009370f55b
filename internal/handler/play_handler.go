package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/handler/dto"
	"github.com/yourusername/livequiz-api/internal/service"
	"github.com/yourusername/livequiz-api/internal/service/quizengine"
)

// PlayHandler обрабатывает запросы участников
type PlayHandler struct {
	participation *service.ParticipationService
}

// NewPlayHandler создает обработчик запросов участников
func NewPlayHandler(participation *service.ParticipationService) *PlayHandler {
	return &PlayHandler{participation: participation}
}

// JoinQuiz подключает участника к викторине.
// 201 - создана новая попытка, 200 - продолжена существующая.
func (h *PlayHandler) JoinQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	var req dto.JoinQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.participation.Join(c.Request.Context(), quizID, req.Name, req.Email)
	if err != nil {
		handleQuizError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, dto.NewJoinResponse(result))
}

// GetCurrentQuestion возвращает текущий вопрос попытки
func (h *PlayHandler) GetCurrentQuestion(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)

	view, err := h.participation.CurrentQuestion(c.Request.Context(), attemptID)
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCurrentQuestionResponse(view))
}

// SubmitAnswer принимает ответ на текущий вопрос
func (h *PlayHandler) SubmitAnswer(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)

	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.participation.SubmitAnswer(c.Request.Context(), quizengine.SubmitRequest{
		AttemptID:      attemptID,
		QuestionID:     req.QuestionID,
		SelectedOption: req.SelectedOption,
		TimeTakenMs:    req.TimeTakenMs,
	})
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSubmitAnswerResponse(result))
}

// GetLeaderboard возвращает рейтинг викторины (?mode=completed|live)
func (h *PlayHandler) GetLeaderboard(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	mode, ok := entity.ParseLeaderboardMode(c.Query("mode"))
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "mode must be completed or live", ErrorType: "bad_request"})
		return
	}

	standings, err := h.participation.Leaderboard(c.Request.Context(), quizID, mode)
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LeaderboardResponse{QuizID: quizID, Mode: mode, Standings: standings})
}

// GetStats возвращает статистику участия
func (h *PlayHandler) GetStats(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	stats, err := h.participation.Stats(c.Request.Context(), quizID)
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetQuiz возвращает метаданные викторины
func (h *PlayHandler) GetQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	snapshot, err := h.participation.QuizMetadata(c.Request.Context(), quizID)
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
