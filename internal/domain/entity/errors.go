package entity

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Ошибки воспроизведения видео.
var (
	ErrSourceOpen        = xerrors.New("video source open failed")
	ErrSourceRead        = xerrors.New("video source read failed")
	ErrDetection         = xerrors.New("detection failed")
	ErrPlaybackCancelled = xerrors.New("playback cancelled")
	ErrPlaybackRunning   = xerrors.New("playback already running")
)

// Ошибки учётных записей и прав доступа.
var (
	ErrNotLoggedIn        = xerrors.New("not logged in")
	ErrInvalidCredentials = xerrors.New("invalid username or password")
	ErrForbidden          = xerrors.New("forbidden")
	ErrUserExists         = xerrors.New("user already exists")
	ErrUserNotFound       = xerrors.New("user not found")
	ErrAnomalyNotFound    = xerrors.New("anomaly not found")
)

// ValidationError ошибка проверки пользовательского ввода.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid создаёт ошибку проверки ввода.
func Invalid(message string) error {
	return &ValidationError{Message: message}
}

// Wrap помечает причину cause видом ошибки kind; errors.Is находит оба.
func Wrap(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}
