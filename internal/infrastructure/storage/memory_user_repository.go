package storage

import (
	"context"
	"sort"
	"sync"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище учётных записей
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[string]*entity.User
	nextID int64
}

// NewMemoryUserRepository создаёт новое in-memory хранилище
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]*entity.User),
	}
}

// GetByUsername возвращает копию пользователя по имени
func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[username]
	if !exists {
		return nil, entity.ErrUserNotFound
	}

	clone := *user
	return &clone, nil
}

// Create сохраняет пользователя и проставляет ему ID
func (r *MemoryUserRepository) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return entity.ErrUserExists
	}

	r.nextID++
	user.ID = r.nextID
	clone := *user
	r.users[user.Username] = &clone

	return nil
}

// Delete удаляет пользователя
func (r *MemoryUserRepository) Delete(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[username]; !exists {
		return entity.ErrUserNotFound
	}
	delete(r.users, username)

	return nil
}

// UpdatePassword обновляет хэш пароля
func (r *MemoryUserRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[username]
	if !exists {
		return entity.ErrUserNotFound
	}
	user.PasswordHash = passwordHash

	return nil
}

// ListByRole возвращает пользователей роли в порядке создания
func (r *MemoryUserRepository) ListByRole(ctx context.Context, role entity.Role) ([]entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]entity.User, 0, len(r.users))
	for _, u := range r.users {
		if u.Role == role {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

// Проверка реализации интерфейса
var _ port.UserRepository = (*MemoryUserRepository)(nil)
