// annotate прогоняет локальное видео через модель в темпе воспроизведения
// и печатает метрики в терминал.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/jpeg"
	"os"
	"os/signal"
	"syscall"

	"qc-vision/config"
	app "qc-vision/internal/application"
	"qc-vision/internal/detection"
	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/infrastructure/telemetry"
	"qc-vision/internal/infrastructure/vision"
	"qc-vision/internal/lgr"
	"qc-vision/internal/playback"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	videoPath := flag.String("video", "", "Video file to annotate (required)")
	threshold := flag.Int("confidence", cfg.DefaultConfidence, "Confidence threshold, percent (0-100)")
	output := flag.String("output", "", "Save the last annotated frame as JPEG (optional)")
	every := flag.Int("every", 1, "Print every n-th displayed frame")
	modelPath := flag.String("model", cfg.ModelPath, "ONNX model path")
	labelsPath := flag.String("labels", cfg.LabelsPath, "Class names file, one per line")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.Parse()

	if *videoPath == "" {
		fmt.Fprintf(os.Stderr, "Error: --video flag is required\n\n")
		fmt.Fprintf(os.Stderr, "Usage example:\n")
		fmt.Fprintf(os.Stderr, "  annotate --video line1.mp4 --confidence 60 --output last.jpg\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *threshold < 0 || *threshold > 100 {
		fmt.Fprintf(os.Stderr, "Error: --confidence must be 0..100, got %d\n", *threshold)
		os.Exit(1)
	}

	logCloser := lgr.Setup(*logLevel, cfg.LogFile)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := vision.NewYOLOModel(vision.ModelConfig{
		ModelPath:     *modelPath,
		LabelsPath:    *labelsPath,
		InputSize:     cfg.ModelInputSize,
		MinConfidence: cfg.ModelMinConfidence,
		NMSThreshold:  cfg.NMSThreshold,
	})
	if err != nil {
		lgr.Logger.Error("failed to load model", "error", err)
		os.Exit(1)
	}
	defer model.Close()

	var (
		opts    []playback.Option
		tracing *telemetry.Tracing
	)
	if cfg.TraceFile != "" {
		tracing, err = telemetry.SetupTracing(cfg.TraceFile, "qc-vision-annotate")
		if err != nil {
			lgr.Logger.Error("failed to set up tracing", "error", err)
			os.Exit(1)
		}
		opts = append(opts, playback.WithTracer(tracing.Tracer(playback.TracerName)))
	}

	console := telemetry.NewConsole(os.Stdout, *every)
	summary, err := annotate(ctx, model, vision.CaptureOpener{}, *videoPath, float64(*threshold), opts, console)
	console.Summary(summary, err)
	if tracing != nil {
		if terr := tracing.Shutdown(context.Background()); terr != nil {
			lgr.Logger.Warn("tracing shutdown", "error", terr)
		}
	}

	if summary != nil && summary.LastFrame != nil && *output != "" {
		if werr := writeJPEG(*output, summary); werr != nil {
			lgr.Logger.Error("failed to save last frame", "path", *output, "error", werr)
		} else {
			lgr.Logger.Info("last frame saved", "path", *output)
		}
	}

	if err != nil && !errors.Is(err, entity.ErrPlaybackCancelled) {
		stop()
		logCloser.Close()
		os.Exit(1)
	}
}

func annotate(ctx context.Context, model port.DefectModel, opener port.VideoOpener, path string, threshold float64, opts []playback.Option, sinks ...port.PlaybackSink) (*entity.PlaybackSummary, error) {
	source, err := playback.Open(opener, path)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	loop := playback.NewLoop(source, detection.NewPipeline(model), threshold, sinks, opts...)
	return loop.Run(ctx)
}

func writeJPEG(path string, summary *entity.PlaybackSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, summary.LastFrame, &jpeg.Options{Quality: app.JPEGQuality}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
