// Package describer строит текстовые таблицы детекций.
package describer

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
)

// NoDefects текст для кадра без детекций
const NoDefects = "Дефекты не обнаружены."

// TableDescriber описывает детекции таблицей
type TableDescriber struct{}

// Describe возвращает таблицу детекций
func (TableDescriber) Describe(ctx context.Context, detections []entity.Detection) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Table(detections), nil
}

// Table форматирует детекции колонками: ID, класс, уверенность, рамка, размер.
func Table(detections []entity.Detection) string {
	if len(detections) == 0 {
		return NoDefects
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tClass\tConf\tBox\tSize, cm")
	for _, d := range detections {
		fmt.Fprintf(w, "%d\t%s\t%.1f%%\t(%d,%d)-(%d,%d)\t%.1f x %.1f\n",
			d.ID, d.ClassName, d.Confidence,
			d.Box.X0, d.Box.Y0, d.Box.X1, d.Box.Y1,
			d.PhysicalWidth, d.PhysicalHeight,
		)
	}
	_ = w.Flush()

	return strings.TrimRight(sb.String(), "\n")
}

var _ port.DefectDescriber = TableDescriber{}
