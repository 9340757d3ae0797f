package app

import (
	"context"
	"sync"

	"qc-vision/internal/domain/entity"
)

// PlaybackRegistry не больше одного воспроизведения на чат
type PlaybackRegistry struct {
	mu      sync.Mutex
	running map[int64]context.CancelFunc
}

// NewPlaybackRegistry создаёт пустой реестр
func NewPlaybackRegistry() *PlaybackRegistry {
	return &PlaybackRegistry{running: make(map[int64]context.CancelFunc)}
}

// Start регистрирует воспроизведение чата и возвращает его контекст
// и функцию завершения. entity.ErrPlaybackRunning если уже идёт другое.
func (r *PlaybackRegistry) Start(parent context.Context, chatID int64) (context.Context, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.running[chatID]; busy {
		return nil, nil, entity.ErrPlaybackRunning
	}

	ctx, cancel := context.WithCancel(parent)
	r.running[chatID] = cancel

	done := func() {
		cancel()
		r.mu.Lock()
		delete(r.running, chatID)
		r.mu.Unlock()
	}
	return ctx, done, nil
}

// Stop отменяет воспроизведение чата; false если его нет
func (r *PlaybackRegistry) Stop(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancel, ok := r.running[chatID]
	if ok {
		cancel()
	}
	return ok
}

// StopAll отменяет все воспроизведения
func (r *PlaybackRegistry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cancel := range r.running {
		cancel()
	}
}
