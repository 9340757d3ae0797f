package app

import (
	"context"
	"time"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/lgr"
)

// LabelingService просмотр и переразметка аномалий
type LabelingService struct {
	repo port.AnomalyRepository
	loc  *time.Location
	now  func() time.Time
}

// NewLabelingService создаёт сервис; неделя считается в поясе loc
func NewLabelingService(repo port.AnomalyRepository, loc *time.Location) *LabelingService {
	if loc == nil {
		loc = time.UTC
	}
	return &LabelingService{repo: repo, loc: loc, now: time.Now}
}

// WeekImages возвращает снимки с аномалиями за текущую неделю
func (s *LabelingService) WeekImages(ctx context.Context, session *entity.Session) ([]string, error) {
	if session == nil {
		return nil, entity.ErrNotLoggedIn
	}
	from, to := entity.WeekWindow(s.now(), s.loc)
	return s.repo.ImagesBetween(ctx, from, to)
}

// Boxes возвращает области дефектов снимка
func (s *LabelingService) Boxes(ctx context.Context, session *entity.Session, imagePath string) ([]entity.Anomaly, error) {
	if session == nil {
		return nil, entity.ErrNotLoggedIn
	}
	return s.repo.ByImage(ctx, imagePath)
}

// Relabel меняет класс аномалии. Только для администратора.
func (s *LabelingService) Relabel(ctx context.Context, session *entity.Session, anomalyID, classID int64) error {
	if err := requireAdmin(session); err != nil {
		return err
	}

	classes, err := s.repo.Classes(ctx)
	if err != nil {
		return err
	}
	known := false
	for _, c := range classes {
		if c.ID == classID {
			known = true
			break
		}
	}
	if !known {
		return entity.Invalid("Неизвестный класс дефекта.")
	}

	if err := s.repo.UpdateClass(ctx, anomalyID, classID); err != nil {
		return err
	}

	lgr.Logger.Info("anomaly relabeled", "anomaly_id", anomalyID, "class_id", classID, "by", session.Username)
	return nil
}

// Classes возвращает справочник классов дефектов
func (s *LabelingService) Classes(ctx context.Context) ([]entity.DefectClass, error) {
	return s.repo.Classes(ctx)
}
