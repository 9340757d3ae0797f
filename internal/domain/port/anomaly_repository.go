package port

import (
	"context"
	"time"

	"qc-vision/internal/domain/entity"
)

// AnomalyRepository интерфейс хранилища аномалий для разметки
type AnomalyRepository interface {
	// ImagesBetween возвращает уникальные пути снимков, созданных в интервале [from, to), по времени создания
	ImagesBetween(ctx context.Context, from, to time.Time) ([]string, error)

	// ByImage возвращает области дефектов на снимке
	ByImage(ctx context.Context, imagePath string) ([]entity.Anomaly, error)

	// Record сохраняет новые аномалии
	Record(ctx context.Context, anomalies []entity.Anomaly) error

	// UpdateClass меняет класс дефекта у аномалии
	UpdateClass(ctx context.Context, anomalyID, classID int64) error

	// Classes возвращает справочник классов дефектов
	Classes(ctx context.Context) ([]entity.DefectClass, error)

	// ClassByName ищет класс по имени; ok=false если не найден
	ClassByName(ctx context.Context, name string) (entity.DefectClass, bool, error)
}
