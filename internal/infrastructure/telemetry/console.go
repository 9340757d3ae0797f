package telemetry

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/infrastructure/describer"
)

// Console печатает метрики кадров в терминал.
// every задаёт, какой каждый показанный кадр печатать; таблица
// детекций выводится только для кадров с дефектами.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	every int
	seen  int

	header *color.Color
	metric *color.Color
	defect *color.Color
	ok     *color.Color
}

// NewConsole создаёт приёмник; every < 1 означает каждый кадр
func NewConsole(out io.Writer, every int) *Console {
	if every < 1 {
		every = 1
	}
	return &Console{
		out:    out,
		every:  every,
		header: color.New(color.FgCyan, color.Bold),
		metric: color.New(color.FgWhite),
		defect: color.New(color.FgRed),
		ok:     color.New(color.FgGreen),
	}
}

// Emit печатает кадр; ошибки записи не прерывают воспроизведение
func (c *Console) Emit(ctx context.Context, update entity.PlaybackUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen++
	if (c.seen-1)%c.every != 0 {
		return nil
	}

	c.header.Fprintf(c.out, "frame %d  %s\n", update.FrameIndex, update.Elapsed)
	c.metric.Fprintln(c.out, update.Metrics.String())
	if len(update.Detections) == 0 {
		c.ok.Fprintln(c.out, describer.NoDefects)
	} else {
		c.defect.Fprintln(c.out, describer.Table(update.Detections))
	}
	fmt.Fprintln(c.out)
	return nil
}

// Summary печатает итог воспроизведения
func (c *Console) Summary(summary *entity.PlaybackSummary, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	title, paint := "playback finished", c.ok
	if err != nil {
		title, paint = "playback stopped: "+err.Error(), c.defect
	}
	paint.Fprintln(c.out, title)
	if summary == nil {
		return
	}

	skippedPct, displayedPct := entity.Percentages(summary.FramesSkipped, summary.FramesDisplayed)
	c.metric.Fprintf(c.out, "source fps: %d, total frames: %d\n", summary.FrameRate, summary.TotalFrames)
	c.metric.Fprintf(c.out, "displayed: %d (%.2f%%), skipped: %d (%.2f%%)\n",
		summary.FramesDisplayed, displayedPct, summary.FramesSkipped, skippedPct)
	c.metric.Fprintln(c.out, entity.ElapsedText(summary.Duration))
}

var _ port.PlaybackSink = (*Console)(nil)
