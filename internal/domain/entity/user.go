package entity

import (
	"time"

	"github.com/google/uuid"
)

// Role роль пользователя
type Role string

const (
	RoleAdmin Role = "admin" // Администратор
	RoleUser  Role = "user"  // Оператор
)

// Valid проверяет, что роль известна
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// MinPasswordLength минимальная длина пароля
const MinPasswordLength = 8

// User представляет учётную запись из таблицы user_admin
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
}

// IsAdmin сообщает, есть ли у пользователя права администратора
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session явный контекст вошедшего пользователя.
// Создаётся при входе и уничтожается при выходе.
type Session struct {
	ID          uuid.UUID
	ChatID      int64
	UserID      int64
	Username    string
	Role        Role
	OperationID int64
	StartedAt   time.Time
	Confidence  int // порог уверенности, проценты
}

// NewSession создаёт сессию для пользователя
func NewSession(chatID int64, user *User, operationID int64, confidence int, now time.Time) *Session {
	return &Session{
		ID:          uuid.New(),
		ChatID:      chatID,
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		OperationID: operationID,
		StartedAt:   now,
		Confidence:  confidence,
	}
}

// IsAdmin сообщает, открыта ли сессия администратором
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// Operation запись журнала рабочих сессий (таблица operation).
type Operation struct {
	ID        int64
	UserID    int64
	StartTime time.Time
	EndTime   *time.Time
}
