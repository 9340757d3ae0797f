package app

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/xerrors"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/lgr"
)

// passwordCost стоимость bcrypt; тесты понижают её
var passwordCost = bcrypt.DefaultCost

// UserService управление учётными записями
type UserService struct {
	repo port.UserRepository
}

// NewUserService создаёт сервис учётных записей
func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Create добавляет учётную запись. Только для администратора.
func (s *UserService) Create(ctx context.Context, actor *entity.Session, username, password string, role entity.Role) (*entity.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	switch {
	case !role.Valid():
		return nil, entity.Invalid("Укажите роль: admin или user.")
	case username == "":
		return nil, entity.Invalid("Укажите имя пользователя.")
	case password == "":
		return nil, entity.Invalid("Укажите пароль.")
	case len(password) < entity.MinPasswordLength:
		return nil, entity.Invalid("Пароль должен быть не короче 8 символов.")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	lgr.Logger.Info("user created", "username", username, "role", role, "by", actor.Username)
	return user, nil
}

// Delete удаляет учётную запись оператора. Только для администратора.
func (s *UserService) Delete(ctx context.Context, actor *entity.Session, username string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return entity.Invalid("Учётные записи администраторов удалять нельзя.")
	}

	if err := s.repo.Delete(ctx, user.Username); err != nil {
		return err
	}

	lgr.Logger.Info("user deleted", "username", user.Username, "by", actor.Username)
	return nil
}

// List возвращает учётные записи операторов. Только для администратора.
func (s *UserService) List(ctx context.Context, actor *entity.Session) ([]entity.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.ListByRole(ctx, entity.RoleUser)
}

// ChangePassword меняет пароль вошедшего пользователя
func (s *UserService) ChangePassword(ctx context.Context, actor *entity.Session, oldPassword, newPassword, confirm string) error {
	if actor == nil {
		return entity.ErrNotLoggedIn
	}

	switch {
	case oldPassword == "":
		return entity.Invalid("Укажите старый пароль.")
	case newPassword == "":
		return entity.Invalid("Укажите новый пароль.")
	case len(newPassword) < entity.MinPasswordLength:
		return entity.Invalid("Новый пароль должен быть не короче 8 символов.")
	case confirm == "":
		return entity.Invalid("Повторите новый пароль.")
	case newPassword == oldPassword:
		return entity.Invalid("Новый пароль должен отличаться от старого.")
	case confirm != newPassword:
		return entity.Invalid("Подтверждение не совпадает с новым паролем.")
	}

	user, err := s.repo.GetByUsername(ctx, actor.Username)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return entity.Invalid("Старый пароль неверен, попробуйте ещё раз.")
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.Username, hash); err != nil {
		return err
	}

	lgr.Logger.Info("password changed", "username", user.Username)
	return nil
}

// Bootstrap создаёт первого администратора, если его ещё нет.
// Пустое имя отключает создание.
func (s *UserService) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, nil
	}

	_, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, entity.ErrUserNotFound) {
		return false, err
	}
	if len(password) < entity.MinPasswordLength {
		return false, entity.Invalid("Пароль должен быть не короче 8 символов.")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}
	if err := s.repo.Create(ctx, &entity.User{Username: username, PasswordHash: hash, Role: entity.RoleAdmin}); err != nil {
		return false, err
	}

	lgr.Logger.Info("bootstrap admin created", "username", username)
	return true, nil
}

func requireAdmin(actor *entity.Session) error {
	if actor == nil {
		return entity.ErrNotLoggedIn
	}
	if !actor.IsAdmin() {
		return entity.ErrForbidden
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", entity.Invalid("Пароль должен быть не длиннее 72 байт.")
	}
	if err != nil {
		return "", xerrors.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
