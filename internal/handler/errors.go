package handler

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// errorResponse - тело ответа с ошибкой
type errorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
	Retryable bool   `json:"retryable"`
}

// rejectionStatus возвращает HTTP-статус для вида отказа
func rejectionStatus(kind error) int {
	switch {
	case errors.Is(kind, apperrors.ErrRateLimited), errors.Is(kind, apperrors.ErrSubmissionBusy):
		return http.StatusTooManyRequests
	case errors.Is(kind, apperrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		// QuizInactive, QuizEnded, QuizFull, AlreadyCompleted, DuplicateAnswer, StaleQuestion
		return http.StatusConflict
	}
}

// handleQuizError преобразует ошибку приложения в HTTP-ответ
func handleQuizError(c *gin.Context, err error) {
	if rej, ok := apperrors.AsRejection(err); ok {
		status := rejectionStatus(rej.Kind)
		if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
			c.Header("Retry-After", retryAfterSeconds(rej))
		}
		if status == http.StatusServiceUnavailable {
			log.Printf("[Handler] Store unavailable: %v", err)
		}
		c.JSON(status, errorResponse{Error: rej.Reason, ErrorType: rej.Type(), Retryable: rej.Retryable()})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not found", ErrorType: "not_found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), ErrorType: "validation_error"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), ErrorType: "conflict"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized", ErrorType: "unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, errorResponse{Error: "Forbidden", ErrorType: "forbidden"})
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Service is temporarily unavailable, please retry", ErrorType: apperrors.ErrStoreUnavailable.Error(), Retryable: true})
	default:
		log.Printf("ERROR: Internal server error: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error", ErrorType: "internal_error"})
	}
}

// retryAfterSeconds округляет подсказку повтора вверх, минимум 1 секунда
func retryAfterSeconds(rej *apperrors.RejectionError) string {
	seconds := int(math.Ceil(rej.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}

// badRequest отвечает на некорректное тело запроса
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), ErrorType: "bad_request"})
}
