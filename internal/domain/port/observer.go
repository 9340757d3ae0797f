package port

import "qc-vision/internal/domain/entity"

// InspectionObserver получает результаты всех проверок: кадры видео
// через PlaybackSink, снимки и итоги воспроизведения отдельно.
// Ошибки наблюдателя не должны прерывать проверку.
type InspectionObserver interface {
	PlaybackSink

	// ObserveImage вызывается после проверки снимка
	ObserveImage(username string, detections []entity.Detection)

	// ObservePlayback вызывается по окончании воспроизведения; summary может быть nil
	ObservePlayback(username string, summary *entity.PlaybackSummary, err error)
}
