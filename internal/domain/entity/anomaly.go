package entity

import "time"

// DefectClass класс дефекта из таблицы class_defect.
type DefectClass struct {
	ID   int64
	Name string
}

// Anomaly размеченная область дефекта на снимке (production_anomaly).
type Anomaly struct {
	ID         int64
	ImagePath  string
	ClassID    int64
	DefectName string
	Box        BoundingBox
	CreatedAt  time.Time
}

// WeekWindow возвращает начало и конец недели (понедельник 00:00 + 7 дней)
// в указанном часовом поясе.
func WeekWindow(now time.Time, loc *time.Location) (start, end time.Time) {
	local := now.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	start = time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 7)
}
