package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/xerrors"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/lgr"
)

// ConfidenceStep шаг регулировки порога уверенности, проценты
const ConfidenceStep = 10

// AuthService отвечает за вход, выход и сессии операторов
type AuthService struct {
	users             port.UserRepository
	operations        port.OperationRepository
	sessions          *SessionStore
	defaultConfidence int
	now               func() time.Time
}

// NewAuthService создаёт сервис авторизации
func NewAuthService(users port.UserRepository, operations port.OperationRepository, sessions *SessionStore, defaultConfidence int) *AuthService {
	return &AuthService{
		users:             users,
		operations:        operations,
		sessions:          sessions,
		defaultConfidence: defaultConfidence,
		now:               time.Now,
	}
}

// Login проверяет учётные данные, открывает запись в журнале сессий
// и привязывает сессию к чату.
func (s *AuthService) Login(ctx context.Context, chatID int64, username, password string) (*entity.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, entity.Invalid("Укажите имя пользователя.")
	}
	if len(password) < entity.MinPasswordLength {
		return nil, entity.Invalid("Пароль должен быть не короче 8 символов.")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, entity.ErrUserNotFound) {
		return nil, entity.ErrInvalidCredentials
	}
	if err != nil {
		return nil, xerrors.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, entity.ErrInvalidCredentials
	}

	// повторный вход в том же чате закрывает прежнюю сессию
	if previous, ok := s.sessions.Get(chatID); ok {
		if err := s.finishLatest(ctx, previous.UserID); err != nil {
			lgr.Logger.Warn("finish previous operation", "chat_id", chatID, "error", err)
		}
	}

	operationID, err := s.operations.Start(ctx, user.ID)
	if err != nil {
		return nil, xerrors.Errorf("start operation: %w", err)
	}

	session := entity.NewSession(chatID, user, operationID, s.defaultConfidence, s.now())
	s.sessions.Put(session)

	lgr.Logger.Info("user logged in",
		"username", user.Username,
		"role", user.Role,
		"chat_id", chatID,
		"session_id", session.ID.String(),
	)
	return session, nil
}

// Logout закрывает последнюю запись журнала пользователя и удаляет сессию
func (s *AuthService) Logout(ctx context.Context, chatID int64) error {
	session, ok := s.sessions.Get(chatID)
	if !ok {
		return entity.ErrNotLoggedIn
	}

	if err := s.finishLatest(ctx, session.UserID); err != nil {
		return err
	}
	s.sessions.Delete(chatID)

	lgr.Logger.Info("user logged out", "username", session.Username, "chat_id", chatID)
	return nil
}

// Session возвращает сессию чата или entity.ErrNotLoggedIn
func (s *AuthService) Session(chatID int64) (*entity.Session, error) {
	session, ok := s.sessions.Get(chatID)
	if !ok {
		return nil, entity.ErrNotLoggedIn
	}
	return session, nil
}

// SetConfidence меняет порог уверенности сессии: 0..100 с шагом 10
func (s *AuthService) SetConfidence(chatID int64, confidence int) error {
	if confidence < 0 || confidence > 100 || confidence%ConfidenceStep != 0 {
		return entity.Invalid("Порог уверенности: от 0 до 100 с шагом 10.")
	}
	if !s.sessions.Update(chatID, func(session *entity.Session) { session.Confidence = confidence }) {
		return entity.ErrNotLoggedIn
	}
	return nil
}

func (s *AuthService) finishLatest(ctx context.Context, userID int64) error {
	last, err := s.operations.LastID(ctx, userID)
	if err != nil {
		return xerrors.Errorf("last operation: %w", err)
	}
	if last == 0 {
		return nil
	}
	if err := s.operations.Finish(ctx, last); err != nil {
		return xerrors.Errorf("finish operation: %w", err)
	}
	return nil
}
