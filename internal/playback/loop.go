// Package playback прогоняет детекцию по видео, удерживая показ
// в темпе реального времени за счёт пропуска кадров.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/lgr"
)

// TracerName имя трассировщика цикла по умолчанию.
const TracerName = "qc-vision/playback"

// Loop однопоточный цикл воспроизведения одного видео.
// Экземпляр владеет источником и счётчиками на время Run и не реентерабелен.
type Loop struct {
	source    port.VideoSource
	processor port.FrameProcessor
	threshold float64
	sinks     []port.PlaybackSink
	now       func() time.Time
	tracer    trace.Tracer
	username  string
	chatID    int64
}

// Option настраивает Loop.
type Option func(*Loop)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// WithTracer задаёт трассировщик сеанса; по умолчанию берётся
// глобальный провайдер otel.
func WithTracer(tracer trace.Tracer) Option {
	return func(l *Loop) {
		l.tracer = tracer
	}
}

// WithOwner помечает обновления сеанса пользователем и чатом.
func WithOwner(username string, chatID int64) Option {
	return func(l *Loop) {
		l.username = username
		l.chatID = chatID
	}
}

// NewLoop создаёт цикл над открытым источником.
// threshold порог уверенности в процентах.
func NewLoop(source port.VideoSource, processor port.FrameProcessor, threshold float64, sinks []port.PlaybackSink, opts ...Option) *Loop {
	l := &Loop{
		source:    source,
		processor: processor,
		threshold: threshold,
		sinks:     sinks,
		now:       time.Now,
		tracer:    otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run крутит цикл до конца видео, ошибки или отмены ctx.
// Конец потока ошибкой не считается.
func (l *Loop) Run(ctx context.Context) (summary *entity.PlaybackSummary, err error) {
	state := entity.NewPlaybackState(l.source.FrameRate(), l.source.FrameCount(), l.now())
	summary = &entity.PlaybackSummary{
		FrameRate:   state.FrameRate,
		TotalFrames: state.TotalFrames,
	}

	ctx, span := l.tracer.Start(ctx, "playback.run", trace.WithAttributes(
		attribute.Int("playback.source_fps", state.FrameRate),
		attribute.Int("playback.total_frames", state.TotalFrames),
		attribute.Float64("playback.threshold", l.threshold),
	))
	defer func() {
		summary.FramesSkipped = state.FramesSkipped
		summary.FramesDisplayed = state.FramesDisplayed
		summary.Duration = l.now().Sub(state.StartTime)

		span.SetAttributes(
			attribute.Int("playback.frames_skipped", state.FramesSkipped),
			attribute.Int("playback.frames_displayed", state.FramesDisplayed),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		lgr.Logger.Info("playback finished",
			slog.Int("framesDisplayed", state.FramesDisplayed),
			slog.Int("framesSkipped", state.FramesSkipped),
			slog.Int("frameIndex", state.FrameIndex),
			slog.Int("totalFrames", state.TotalFrames),
			slog.Duration("duration", summary.Duration),
			slog.Any("error", err),
		)
	}()

	prevEmit := state.StartTime
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, entity.Wrap(entity.ErrPlaybackCancelled, ctxErr)
		}
		if state.Exhausted() {
			return summary, nil
		}

		frame, ok, readErr := l.source.Read()
		if readErr != nil {
			return summary, entity.Wrap(entity.ErrSourceRead, xerrors.Errorf("frame %d: %w", state.FrameIndex, readErr))
		}
		if !ok {
			return summary, nil
		}

		procStart := l.now()
		result, procErr := l.processor.Process(ctx, frame, l.threshold)
		if procErr != nil {
			if !errors.Is(procErr, entity.ErrDetection) {
				procErr = entity.Wrap(entity.ErrDetection, procErr)
			}
			return summary, xerrors.Errorf("frame %d: %w", state.FrameIndex, procErr)
		}

		now := l.now()
		processing := now.Sub(procStart)
		displayFPS := entity.DisplayFPS(now.Sub(prevEmit))
		prevEmit = now

		elapsed := now.Sub(state.StartTime)
		update := entity.PlaybackUpdate{
			Username:   l.username,
			ChatID:     l.chatID,
			FrameIndex: state.FrameIndex,
			Frame:      result.Annotated,
			Metrics:    state.Metrics(displayFPS, processing, elapsed),
			Detections: result.Detections,
			Elapsed:    entity.ElapsedText(elapsed),
		}
		for _, sink := range l.sinks {
			if emitErr := sink.Emit(ctx, update); emitErr != nil {
				return summary, xerrors.Errorf("emit frame %d: %w", state.FrameIndex, emitErr)
			}
		}
		summary.LastFrame = result.Annotated
		summary.LastDetections = result.Detections

		lgr.Logger.Debug("frame displayed",
			slog.Int("frameIndex", state.FrameIndex),
			slog.Int("detections", len(result.Detections)),
			slog.Duration("processing", processing),
		)

		state.Advance(l.now().Sub(state.StartTime))
		if seekErr := l.source.Seek(state.FrameIndex); seekErr != nil {
			return summary, entity.Wrap(entity.ErrSourceRead, xerrors.Errorf("seek %d: %w", state.FrameIndex, seekErr))
		}
	}
}
