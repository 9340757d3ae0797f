package port

import (
	"context"
	"image"

	"qc-vision/internal/domain/entity"
)

// DefectModel интерфейс модели детекции дефектов
type DefectModel interface {
	// Predict запускает модель на кадре и возвращает кандидатов с уверенностью не ниже minConfidence
	Predict(ctx context.Context, frame image.Image, minConfidence float64) (*entity.ModelOutput, error)
}

// FrameProcessor интерфейс обработки одного кадра: детекция и разметка
type FrameProcessor interface {
	// Process находит дефекты с порогом threshold (проценты) и рисует их на копии кадра
	Process(ctx context.Context, frame image.Image, threshold float64) (*entity.FrameResult, error)
}
