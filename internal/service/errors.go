package service

import (
	"fmt"

	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// Ограничения входных данных
const (
	maxNameLength  = 100
	maxEmailLength = 255
	maxTitleLength = 200
)

// validationError оборачивает ErrValidation с пояснением для клиента
func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", apperrors.ErrValidation, fmt.Sprintf(format, args...))
}
