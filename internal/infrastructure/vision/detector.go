//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
)

// YOLOModel модель YOLO (экспорт ONNX) поверх gocv DNN.
type YOLOModel struct {
	mu            sync.Mutex // gocv.Net не потокобезопасна
	net           gocv.Net
	names         []string
	inputSize     int
	minConfidence float64
	nmsThreshold  float64
}

// NewYOLOModel загружает веса и список классов.
func NewYOLOModel(cfg ModelConfig) (*YOLOModel, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model weights: %w", err)
	}

	names, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to read model %s", cfg.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}

	cfg = cfg.withDefaults()
	return &YOLOModel{
		net:           net,
		names:         names,
		inputSize:     cfg.InputSize,
		minConfidence: cfg.MinConfidence,
		nmsThreshold:  cfg.NMSThreshold,
	}, nil
}

// Predict прогоняет кадр через сеть и возвращает кандидатов после NMS.
// Выход сети: [1, 4+классы, N], рамки в формате центр+размер.
func (m *YOLOModel) Predict(ctx context.Context, frame image.Image, minConfidence float64) (*entity.ModelOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("empty image")
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(m.inputSize, m.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.mu.Lock()
	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	m.mu.Unlock()
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 || dims[1] < 5 {
		return nil, fmt.Errorf("unexpected model output dims: %v", dims)
	}
	attrs, count := dims[1], dims[2]

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read model output: %w", err)
	}
	if len(data) < attrs*count {
		return nil, fmt.Errorf("model output too short: %d < %d", len(data), attrs*count)
	}

	floor := minConfidence
	if floor < m.minConfidence {
		floor = m.minConfidence
	}

	sx := float64(mat.Cols()) / float64(m.inputSize)
	sy := float64(mat.Rows()) / float64(m.inputSize)

	candidates := make([]entity.Candidate, 0, 64)
	for i := 0; i < count; i++ {
		classID, score := -1, float32(0)
		for c := 4; c < attrs; c++ {
			if s := data[c*count+i]; s > score {
				score = s
				classID = c - 4
			}
		}
		if classID < 0 || score < float32(floor) {
			continue
		}

		candidates = append(candidates, entity.Candidate{
			ClassIndex: classID,
			Confidence: float64(score),
			CenterX:    float64(data[0*count+i]) * sx,
			CenterY:    float64(data[1*count+i]) * sy,
			Width:      float64(data[2*count+i]) * sx,
			Height:     float64(data[3*count+i]) * sy,
		})
	}

	return &entity.ModelOutput{
		Candidates: SuppressOverlaps(candidates, m.nmsThreshold),
		Names:      m.names,
		Image:      frame,
	}, nil
}

// Close освобождает сеть.
func (m *YOLOModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}

var _ port.DefectModel = (*YOLOModel)(nil)
