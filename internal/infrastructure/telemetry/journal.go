package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/lgr"
)

// Journal пишет детекции в файл JSON-строками с ротацией.
// Кадры и снимки без детекций не записываются.
type Journal struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

type journalEntry struct {
	Time       string             `json:"time"`
	Source     string             `json:"source"`
	ChatID     int64              `json:"chat_id,omitempty"`
	FrameIndex *int               `json:"frame_index,omitempty"`
	Detections []entity.Detection `json:"detections"`
}

type summaryEntry struct {
	Time            string  `json:"time"`
	Source          string  `json:"source"`
	FramesSkipped   int     `json:"frames_skipped"`
	FramesDisplayed int     `json:"frames_displayed"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error,omitempty"`
}

// NewJournal открывает журнал с ротацией по размеру
func NewJournal(path string) (*Journal, io.Closer) {
	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     7, // days
		Compress:   true,
	}
	return newJournal(rotated), rotated
}

func newJournal(out io.Writer) *Journal {
	return &Journal{out: out, now: time.Now}
}

// Emit записывает детекции кадра видео
func (j *Journal) Emit(ctx context.Context, update entity.PlaybackUpdate) error {
	if len(update.Detections) == 0 {
		return nil
	}

	index := update.FrameIndex
	j.writeLine(journalEntry{
		Time:       j.now().Format(time.RFC3339),
		Source:     "video:" + update.Username,
		ChatID:     update.ChatID,
		FrameIndex: &index,
		Detections: update.Detections,
	})
	return nil
}

// ObserveImage записывает детекции снимка
func (j *Journal) ObserveImage(username string, detections []entity.Detection) {
	if len(detections) == 0 {
		return
	}

	j.writeLine(journalEntry{
		Time:       j.now().Format(time.RFC3339),
		Source:     "image:" + username,
		Detections: detections,
	})
}

// ObservePlayback записывает итог воспроизведения, в котором были кадры
func (j *Journal) ObservePlayback(username string, summary *entity.PlaybackSummary, err error) {
	if summary == nil || summary.FramesDisplayed == 0 {
		return
	}

	entry := summaryEntry{
		Time:            j.now().Format(time.RFC3339),
		Source:          "video:" + username,
		FramesSkipped:   summary.FramesSkipped,
		FramesDisplayed: summary.FramesDisplayed,
		DurationSeconds: summary.Duration.Seconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	j.writeLine(entry)
}

func (j *Journal) writeLine(entry any) {
	data, err := json.Marshal(entry)
	if err != nil {
		lgr.Logger.Warn("journal marshal failed", "error", err)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.out.Write(append(data, '\n')); err != nil {
		lgr.Logger.Warn("journal write failed", "error", err)
	}
}

var _ port.InspectionObserver = (*Journal)(nil)
