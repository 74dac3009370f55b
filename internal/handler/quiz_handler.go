package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/handler/dto"
	"github.com/yourusername/livequiz-api/internal/service"
)

// QuizHandler обрабатывает административные запросы жизненного цикла викторины
type QuizHandler struct {
	quizService   *service.QuizService
	participation *service.ParticipationService
}

// NewQuizHandler создает новый обработчик викторин
func NewQuizHandler(quizService *service.QuizService, participation *service.ParticipationService) *QuizHandler {
	return &QuizHandler{
		quizService:   quizService,
		participation: participation,
	}
}

// CreateQuiz обрабатывает запрос на создание викторины
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req dto.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), service.CreateQuizInput{
		EventID:            req.EventID,
		Title:              req.Title,
		TimePerQuestionSec: req.TimePerQuestionSec,
		TotalTimeLimitSec:  req.TotalTimeLimitSec,
		ParticipantLimit:   req.ParticipantLimit,
	})
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewQuizResponse(quiz))
}

// ListQuizzes возвращает страницу викторин (?page=&page_size=)
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	quizzes, err := h.quizService.ListQuizzes(c.Request.Context(), page, pageSize)
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListQuizResponse(quizzes))
}

// GetQuiz возвращает полную информацию о викторине
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	quiz, err := h.quizService.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz))
}

// AddQuestions добавляет вопросы к викторине
func (h *QuizHandler) AddQuestions(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	var req dto.AddQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	questions, err := h.quizService.AddQuestions(c.Request.Context(), quizID, req.ToQuestionInputs())
	if err != nil {
		handleQuizError(c, err)
		return
	}

	quiz, err := h.quizService.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"quiz":      dto.NewQuizResponse(quiz),
		"questions": dto.NewAdminQuestionResponses(questions, quiz.TimePerQuestionSec),
	})
}

// ListQuestions возвращает вопросы викторины вместе с правильными ответами
func (h *QuizHandler) ListQuestions(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	quiz, err := h.quizService.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		handleQuizError(c, err)
		return
	}
	questions, err := h.quizService.ListQuestions(c.Request.Context(), quizID)
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAdminQuestionResponses(questions, quiz.TimePerQuestionSec))
}

// StartQuiz открывает викторину для подключения
func (h *QuizHandler) StartQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	quiz, err := h.quizService.StartQuiz(c.Request.Context(), quizID)
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz))
}

// EndQuiz завершает викторину
func (h *QuizHandler) EndQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	quiz, err := h.quizService.EndQuiz(c.Request.Context(), quizID)
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz))
}

// UpdateSettings меняет лимиты и название викторины
func (h *QuizHandler) UpdateSettings(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	quiz, err := h.quizService.UpdateSettings(c.Request.Context(), quizID, repository.QuizSettings{
		Title:              req.Title,
		ParticipantLimit:   req.ParticipantLimit,
		TimePerQuestionSec: req.TimePerQuestionSec,
		TotalTimeLimitSec:  req.TotalTimeLimitSec,
	})
	if err != nil {
		handleQuizError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz))
}

// ExportLeaderboard выгружает полный рейтинг (?mode=completed|live&format=csv|xlsx)
func (h *QuizHandler) ExportLeaderboard(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	mode, ok := entity.ParseLeaderboardMode(c.Query("mode"))
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "mode must be completed or live", ErrorType: "bad_request"})
		return
	}
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "format must be csv or xlsx", ErrorType: "bad_request"})
		return
	}

	quiz, standings, err := h.participation.ExportStandings(c.Request.Context(), quizID, mode)
	if err != nil {
		handleQuizError(c, err)
		return
	}

	filename := fmt.Sprintf("quiz_%d_%s", quiz.ID, mode)
	if format == "xlsx" {
		h.exportXLSX(c, standings, filename)
	} else {
		h.exportCSV(c, standings, filename)
	}
}

var exportHeader = []string{"Место", "Участник", "Очки", "Отвечено", "Всего вопросов", "Время, с", "Завершено"}

func exportRow(s entity.AttemptSummary) []string {
	completed := "Нет"
	if s.IsCompleted {
		completed = "Да"
	}
	return []string{
		strconv.Itoa(s.Rank),
		sanitizeForExcel(s.ParticipantName),
		strconv.Itoa(s.Score),
		strconv.Itoa(s.Answered),
		strconv.Itoa(s.TotalQuestions),
		strconv.FormatFloat(float64(s.TotalTimeMs)/1000, 'f', 1, 64),
		completed,
	}
}

// exportCSV экспортирует рейтинг в CSV с правильным экранированием спецсимволов
func (h *QuizHandler) exportCSV(c *gin.Context, standings []entity.AttemptSummary, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeader)
	for _, s := range standings {
		writer.Write(exportRow(s))
	}
}

// exportXLSX экспортирует рейтинг в Excel с использованием StreamWriter
func (h *QuizHandler) exportXLSX(c *gin.Context, standings []entity.AttemptSummary, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Рейтинг"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[QuizHandler] Ошибка создания StreamWriter: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	header := make([]interface{}, len(exportHeader))
	for i, title := range exportHeader {
		header[i] = title
	}
	sw.SetRow("A1", header)

	for i, s := range standings {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		completed := "Нет"
		if s.IsCompleted {
			completed = "Да"
		}
		row := []interface{}{s.Rank, sanitizeForExcel(s.ParticipantName), s.Score, s.Answered, s.TotalQuestions, float64(s.TotalTimeMs) / 1000, completed}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[QuizHandler] Ошибка записи строки %d: %v", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[QuizHandler] Ошибка при Flush: %v", err)
	}
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[QuizHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
