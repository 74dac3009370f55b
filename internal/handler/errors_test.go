package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

func TestHandleQuizError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantRetry  string
	}{
		{"rate limited", apperrors.RejectRetryAfter(apperrors.ErrRateLimited, "slow down", 1500*time.Millisecond), http.StatusTooManyRequests, "rate_limited", "2"},
		{"submission busy", apperrors.Reject(apperrors.ErrSubmissionBusy, "busy"), http.StatusTooManyRequests, "submission_busy", "1"},
		{"store unavailable", apperrors.Unavailable(errors.New("timeout")), http.StatusServiceUnavailable, "store_unavailable", "1"},
		{"quiz full", apperrors.Reject(apperrors.ErrQuizFull, "full"), http.StatusConflict, "quiz_full", ""},
		{"stale question", fmt.Errorf("submit: %w", apperrors.Reject(apperrors.ErrStaleQuestion, "stale")), http.StatusConflict, "stale_question", ""},
		{"not found", fmt.Errorf("load: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found", ""},
		{"validation", fmt.Errorf("%w: name is required", apperrors.ErrValidation), http.StatusUnprocessableEntity, "validation_error", ""},
		{"conflict", fmt.Errorf("%w: already started", apperrors.ErrConflict), http.StatusConflict, "conflict", ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			// Act
			handleQuizError(c, tt.err)

			// Assert
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), fmt.Sprintf(`"error_type":"%s"`, tt.wantType))
			assert.Equal(t, tt.wantRetry, w.Header().Get("Retry-After"))
		})
	}
}

func TestSanitizeForExcel(t *testing.T) {
	assert.Equal(t, "'=1+1", sanitizeForExcel("=1+1"))
	assert.Equal(t, "'@cmd", sanitizeForExcel("@cmd"))
	assert.Equal(t, "Alice", sanitizeForExcel("Alice"))
	assert.Equal(t, "", sanitizeForExcel(""))
}
