package port

import (
	"context"

	"qc-vision/internal/domain/entity"
)

// DefectDescriber интерфейс описателя дефектов
type DefectDescriber interface {
	// Describe генерирует текстовое описание найденных дефектов
	Describe(ctx context.Context, detections []entity.Detection) (string, error)
}
