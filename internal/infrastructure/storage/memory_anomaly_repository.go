package storage

import (
	"context"
	"sync"
	"time"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
)

// MemoryAnomalyRepository in-memory хранилище аномалий и справочника классов
type MemoryAnomalyRepository struct {
	mu        sync.RWMutex
	anomalies []entity.Anomaly
	classes   []entity.DefectClass
	now       func() time.Time
}

// NewMemoryAnomalyRepository создаёт хранилище; классы нумеруются с 1
// в порядке names.
func NewMemoryAnomalyRepository(names []string) *MemoryAnomalyRepository {
	classes := make([]entity.DefectClass, 0, len(names))
	for i, n := range names {
		classes = append(classes, entity.DefectClass{ID: int64(i + 1), Name: n})
	}
	return &MemoryAnomalyRepository{classes: classes, now: time.Now}
}

// ImagesBetween возвращает уникальные пути снимков за интервал [from, to)
func (r *MemoryAnomalyRepository) ImagesBetween(ctx context.Context, from, to time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var paths []string
	for _, a := range r.anomalies {
		if a.CreatedAt.Before(from) || !a.CreatedAt.Before(to) {
			continue
		}
		if _, ok := seen[a.ImagePath]; ok {
			continue
		}
		seen[a.ImagePath] = struct{}{}
		paths = append(paths, a.ImagePath)
	}

	return paths, nil
}

// ByImage возвращает области снимка с именами классов
func (r *MemoryAnomalyRepository) ByImage(ctx context.Context, imagePath string) ([]entity.Anomaly, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Anomaly
	for _, a := range r.anomalies {
		if a.ImagePath != imagePath {
			continue
		}
		a.DefectName = r.className(a.ClassID)
		out = append(out, a)
	}

	return out, nil
}

// Record сохраняет аномалии, проставляя ID и время создания
func (r *MemoryAnomalyRepository) Record(ctx context.Context, anomalies []entity.Anomaly) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range anomalies {
		a.ID = int64(len(r.anomalies) + 1)
		if a.CreatedAt.IsZero() {
			a.CreatedAt = r.now()
		}
		r.anomalies = append(r.anomalies, a)
	}

	return nil
}

// UpdateClass меняет класс аномалии
func (r *MemoryAnomalyRepository) UpdateClass(ctx context.Context, anomalyID, classID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.anomalies {
		if r.anomalies[i].ID == anomalyID {
			r.anomalies[i].ClassID = classID
			return nil
		}
	}

	return entity.ErrAnomalyNotFound
}

// Classes возвращает справочник классов
func (r *MemoryAnomalyRepository) Classes(ctx context.Context) ([]entity.DefectClass, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.DefectClass, len(r.classes))
	copy(out, r.classes)
	return out, nil
}

// ClassByName ищет класс по имени
func (r *MemoryAnomalyRepository) ClassByName(ctx context.Context, name string) (entity.DefectClass, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.classes {
		if c.Name == name {
			return c, true, nil
		}
	}

	return entity.DefectClass{}, false, nil
}

func (r *MemoryAnomalyRepository) className(id int64) string {
	for _, c := range r.classes {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

var _ port.AnomalyRepository = (*MemoryAnomalyRepository)(nil)
