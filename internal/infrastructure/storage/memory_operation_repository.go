package storage

import (
	"context"
	"sync"
	"time"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
)

// MemoryOperationRepository in-memory журнал рабочих сессий
type MemoryOperationRepository struct {
	mu         sync.Mutex
	operations []entity.Operation
	now        func() time.Time
}

// NewMemoryOperationRepository создаёт журнал
func NewMemoryOperationRepository() *MemoryOperationRepository {
	return &MemoryOperationRepository{now: time.Now}
}

// Start записывает начало сессии
func (r *MemoryOperationRepository) Start(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := int64(len(r.operations) + 1)
	r.operations = append(r.operations, entity.Operation{
		ID:        id,
		UserID:    userID,
		StartTime: r.now(),
	})

	return id, nil
}

// LastID возвращает ID последней сессии пользователя
func (r *MemoryOperationRepository) LastID(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var last int64
	for _, op := range r.operations {
		if op.UserID == userID && op.ID > last {
			last = op.ID
		}
	}

	return last, nil
}

// Finish проставляет время окончания сессии
func (r *MemoryOperationRepository) Finish(ctx context.Context, operationID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.operations {
		if r.operations[i].ID == operationID {
			end := r.now()
			r.operations[i].EndTime = &end
			return nil
		}
	}

	return nil
}

// Operations возвращает копию журнала
func (r *MemoryOperationRepository) Operations() []entity.Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entity.Operation, len(r.operations))
	copy(out, r.operations)
	return out
}

var _ port.OperationRepository = (*MemoryOperationRepository)(nil)
