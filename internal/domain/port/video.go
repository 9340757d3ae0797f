package port

import (
	"context"
	"image"

	"qc-vision/internal/domain/entity"
)

// VideoSource видеоисточник с произвольным доступом к кадрам
type VideoSource interface {
	// FrameRate возвращает частоту кадров источника
	FrameRate() int
	// FrameCount возвращает общее число кадров
	FrameCount() int
	// Read читает кадр под курсором; ok=false означает конец потока
	Read() (frame image.Image, ok bool, err error)
	// Seek ставит курсор чтения на кадр index
	Seek(index int) error
	// Close освобождает источник
	Close() error
}

// VideoOpener открывает видеоисточник по пути к файлу
type VideoOpener interface {
	Open(path string) (VideoSource, error)
}

// PlaybackSink приёмник результатов итерации цикла воспроизведения
type PlaybackSink interface {
	Emit(ctx context.Context, update entity.PlaybackUpdate) error
}

// PlaybackSinkFunc адаптер функции к PlaybackSink
type PlaybackSinkFunc func(ctx context.Context, update entity.PlaybackUpdate) error

// Emit вызывает f
func (f PlaybackSinkFunc) Emit(ctx context.Context, update entity.PlaybackUpdate) error {
	return f(ctx, update)
}
