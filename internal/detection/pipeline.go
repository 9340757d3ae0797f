package detection

import (
	"context"
	"image"

	"golang.org/x/xerrors"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
)

// Pipeline связывает модель, отбор детекций и разметку кадра.
type Pipeline struct {
	model port.DefectModel
}

// NewPipeline создаёт обработчик кадров поверх модели.
func NewPipeline(model port.DefectModel) *Pipeline {
	return &Pipeline{model: model}
}

// Process запускает модель и возвращает детекции и размеченный кадр.
func (p *Pipeline) Process(ctx context.Context, frame image.Image, threshold float64) (*entity.FrameResult, error) {
	if p.model == nil {
		return nil, entity.Wrap(entity.ErrDetection, xerrors.New("model is not configured"))
	}
	if frame == nil {
		return nil, entity.Wrap(entity.ErrDetection, xerrors.New("empty frame"))
	}

	output, err := p.model.Predict(ctx, frame, threshold/100)
	if err != nil {
		return nil, entity.Wrap(entity.ErrDetection, err)
	}

	detections := Extract(output, threshold)
	return &entity.FrameResult{
		Detections: detections,
		Annotated:  Annotate(frame, detections),
	}, nil
}

var _ port.FrameProcessor = (*Pipeline)(nil)
