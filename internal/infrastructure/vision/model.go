package vision

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"qc-vision/internal/domain/entity"
)

// ModelConfig параметры загрузки модели.
type ModelConfig struct {
	ModelPath     string
	LabelsPath    string
	InputSize     int     // сторона входа сети, пиксели
	MinConfidence float64 // нижняя граница уверенности, [0,1]
	NMSThreshold  float64 // порог IoU для подавления
}

func (c ModelConfig) withDefaults() ModelConfig {
	if c.InputSize <= 0 {
		c.InputSize = 640
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.25
	}
	if c.NMSThreshold <= 0 {
		c.NMSThreshold = 0.45
	}
	return c
}

// LoadLabels читает имена классов, по одному в строке.
// Пустой путь означает модель без файла классов.
func LoadLabels(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	labels := make([]string, 0, len(lines))
	for _, l := range lines {
		labels = append(labels, strings.TrimSpace(l))
	}
	return labels, nil
}

// SuppressOverlaps жадный NMS внутри каждого класса.
// Результат отсортирован по убыванию уверенности.
func SuppressOverlaps(candidates []entity.Candidate, iouThreshold float64) []entity.Candidate {
	sorted := make([]entity.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]entity.Candidate, 0, len(sorted))
	for _, c := range sorted {
		overlaps := false
		for _, k := range kept {
			if k.ClassIndex == c.ClassIndex && iou(k, c) > iouThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}

func iou(a, b entity.Candidate) float64 {
	ax0, ay0, ax1, ay1 := a.CenterX-a.Width/2, a.CenterY-a.Height/2, a.CenterX+a.Width/2, a.CenterY+a.Height/2
	bx0, by0, bx1, by1 := b.CenterX-b.Width/2, b.CenterY-b.Height/2, b.CenterX+b.Width/2, b.CenterY+b.Height/2

	w := minFloat(ax1, bx1) - maxFloat(ax0, bx0)
	h := minFloat(ay1, by1) - maxFloat(ay0, by0)
	if w <= 0 || h <= 0 {
		return 0
	}

	inter := w * h
	union := a.Width*a.Height + b.Width*b.Height - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
