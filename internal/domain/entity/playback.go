package entity

import (
	"fmt"
	"image"
	"math"
	"time"
)

// PlaybackState состояние одного сеанса воспроизведения видео.
type PlaybackState struct {
	FrameIndex      int // курсор чтения, не убывает
	FramesSkipped   int
	FramesDisplayed int
	StartTime       time.Time
	FrameRate       int // читается один раз при открытии источника
	TotalFrames     int
}

// NewPlaybackState создаёт состояние сеанса с нулевыми счётчиками.
func NewPlaybackState(frameRate, totalFrames int, start time.Time) *PlaybackState {
	return &PlaybackState{
		StartTime:   start,
		FrameRate:   frameRate,
		TotalFrames: totalFrames,
	}
}

// Exhausted сообщает, что курсор дошёл до конца видео.
func (s *PlaybackState) Exhausted() bool {
	return s.FrameIndex >= s.TotalFrames
}

// Advance двигает курсор после показанного кадра.
// Если обработка отстала от реального времени, курсор прыгает к кадру,
// который должен показываться сейчас, а пропущенные кадры учитываются.
func (s *PlaybackState) Advance(elapsed time.Duration) {
	expected := ExpectedFrameIndex(elapsed, s.FrameRate)
	if expected > s.FrameIndex {
		s.FramesSkipped += expected - s.FrameIndex - 1
		s.FrameIndex = expected
	} else {
		s.FrameIndex++
	}
	s.FramesDisplayed++
}

// Metrics строит снимок метрик по текущим счётчикам.
func (s *PlaybackState) Metrics(displayFPS float64, processing, elapsed time.Duration) PlaybackMetrics {
	skippedPct, displayedPct := Percentages(s.FramesSkipped, s.FramesDisplayed)
	return PlaybackMetrics{
		SourceFPS:              s.FrameRate,
		DisplayFPS:             displayFPS,
		FrameProcessingSeconds: processing.Seconds(),
		FramesSkipped:          s.FramesSkipped,
		FramesSkippedPct:       skippedPct,
		FramesDisplayed:        s.FramesDisplayed,
		FramesDisplayedPct:     displayedPct,
		ElapsedSeconds:         elapsed.Seconds(),
	}
}

// ExpectedFrameIndex возвращает floor(elapsed * frameRate).
func ExpectedFrameIndex(elapsed time.Duration, frameRate int) int {
	return int(math.Floor(elapsed.Seconds() * float64(frameRate)))
}

// DisplayFPS возвращает 1/delta, либо 0 если время не прошло.
func DisplayFPS(sinceLast time.Duration) float64 {
	if sinceLast <= 0 {
		return 0
	}
	return 1 / sinceLast.Seconds()
}

// Percentages считает доли пропущенных и показанных кадров.
func Percentages(skipped, displayed int) (skippedPct, displayedPct float64) {
	total := skipped + displayed
	if total <= 0 {
		return 0, 0
	}
	return float64(skipped*100) / float64(total), float64(displayed*100) / float64(total)
}

// PlaybackMetrics метрики одной итерации цикла.
type PlaybackMetrics struct {
	SourceFPS              int     `json:"source_fps"`
	DisplayFPS             float64 `json:"display_fps"`
	FrameProcessingSeconds float64 `json:"frame_processing_seconds"`
	FramesSkipped          int     `json:"frames_skipped"`
	FramesSkippedPct       float64 `json:"frames_skipped_pct"`
	FramesDisplayed        int     `json:"frames_displayed"`
	FramesDisplayedPct     float64 `json:"frames_displayed_pct"`
	ElapsedSeconds         float64 `json:"elapsed_seconds"`
}

// FramesPassed сумма пропущенных и показанных кадров.
func (m PlaybackMetrics) FramesPassed() int {
	return m.FramesSkipped + m.FramesDisplayed
}

// String форматирует метрики так же, как панель метрик.
func (m PlaybackMetrics) String() string {
	return fmt.Sprintf(
		"Original FPS: %d\nDisplay FPS: %.2f\nProcessing Time per Frame: %.3f sec\nFrames Skipped: %d/%d (%.2f%%)\nFrames Displayed: %d/%d (%.2f%%)",
		m.SourceFPS,
		m.DisplayFPS,
		m.FrameProcessingSeconds,
		m.FramesSkipped, m.FramesPassed(), m.FramesSkippedPct,
		m.FramesDisplayed, m.FramesPassed(), m.FramesDisplayedPct,
	)
}

// ElapsedText форматирует длительность воспроизведения.
func ElapsedText(elapsed time.Duration) string {
	return fmt.Sprintf("Video Duration: %.2f sec", elapsed.Seconds())
}

// PlaybackUpdate всё, что цикл отдаёт приёмникам за одну итерацию.
type PlaybackUpdate struct {
	Username   string // владелец сеанса, пусто вне бота
	ChatID     int64
	FrameIndex int
	Frame      *image.RGBA
	Metrics    PlaybackMetrics
	Detections []Detection
	Elapsed    string
}

// PlaybackSummary итог сеанса воспроизведения.
type PlaybackSummary struct {
	FrameRate       int
	TotalFrames     int
	FramesSkipped   int
	FramesDisplayed int
	Duration        time.Duration
	LastDetections  []Detection
	LastFrame       *image.RGBA
}
