package port

import (
	"context"

	"qc-vision/internal/domain/entity"
)

// UserRepository интерфейс хранилища учётных записей
type UserRepository interface {
	// GetByUsername возвращает пользователя по имени или entity.ErrUserNotFound
	GetByUsername(ctx context.Context, username string) (*entity.User, error)

	// Create добавляет пользователя; entity.ErrUserExists если имя занято
	Create(ctx context.Context, user *entity.User) error

	// Delete удаляет пользователя по имени
	Delete(ctx context.Context, username string) error

	// UpdatePassword обновляет хэш пароля
	UpdatePassword(ctx context.Context, username, passwordHash string) error

	// ListByRole возвращает пользователей с указанной ролью
	ListByRole(ctx context.Context, role entity.Role) ([]entity.User, error)
}

// OperationRepository интерфейс журнала рабочих сессий
type OperationRepository interface {
	// Start записывает начало сессии и возвращает её ID
	Start(ctx context.Context, userID int64) (int64, error)

	// LastID возвращает ID последней сессии пользователя (0 если нет)
	LastID(ctx context.Context, userID int64) (int64, error)

	// Finish проставляет время окончания сессии
	Finish(ctx context.Context, operationID int64) error
}
