// Package detection переводит сырой вывод модели в таблицу детекций
// и рисует найденные дефекты на кадре.
package detection

import (
	"fmt"
	"math"

	"qc-vision/internal/domain/entity"
)

// CalibrationDivisor пикселей на сантиметр для установленной камеры.
const CalibrationDivisor = 4.0

// Extract отбирает кандидатов с уверенностью не ниже threshold (проценты)
// и нумерует их с 1 в исходном порядке.
func Extract(output *entity.ModelOutput, threshold float64) []entity.Detection {
	if output == nil {
		return nil
	}

	detections := make([]entity.Detection, 0, len(output.Candidates))
	for _, c := range output.Candidates {
		confidence := clamp(Percent(c.Confidence), 0, 100)
		if confidence < threshold {
			continue
		}

		name, ok := output.ClassName(c.ClassIndex)
		if !ok {
			name = fmt.Sprintf("class_%d", c.ClassIndex)
		}

		w, h := math.Abs(c.Width), math.Abs(c.Height)
		detections = append(detections, entity.Detection{
			ID:             len(detections) + 1,
			ClassName:      name,
			Confidence:     confidence,
			Box:            Corners(c.CenterX, c.CenterY, w, h),
			PhysicalWidth:  w / CalibrationDivisor,
			PhysicalHeight: h / CalibrationDivisor,
		})
	}

	return detections
}

// Percent переводит уверенность модели в проценты с точностью float32,
// в которой модель её и выдаёт: float32(0.7) даёт ровно 70.
func Percent(confidence float64) float64 {
	return float64(float32(confidence) * 100)
}

// Corners переводит рамку из формата центр+размер в углы.
func Corners(cx, cy, w, h float64) entity.BoundingBox {
	return entity.BoundingBox{
		X0: int(cx - w/2),
		Y0: int(cy - h/2),
		X1: int(cx + w/2),
		Y1: int(cy + h/2),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
