//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"
	"image"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
)

// YOLOModel заглушка модели для сборки без OpenCV.
type YOLOModel struct{}

// NewYOLOModel возвращает ошибку, если сборка без тега gocv.
func NewYOLOModel(cfg ModelConfig) (*YOLOModel, error) {
	_ = cfg
	return nil, errors.New("gocv build tag is not enabled")
}

// Predict возвращает ошибку, если сборка без тега gocv.
func (m *YOLOModel) Predict(ctx context.Context, frame image.Image, minConfidence float64) (*entity.ModelOutput, error) {
	_ = ctx
	_ = frame
	_ = minConfidence
	return nil, errors.New("gocv build tag is not enabled")
}

// Close ничего не делает.
func (m *YOLOModel) Close() error {
	return nil
}

var _ port.DefectModel = (*YOLOModel)(nil)
