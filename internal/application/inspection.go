package app

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // регистрация декодера
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"  // регистрация декодера
	_ "golang.org/x/image/webp" // регистрация декодера
	"golang.org/x/xerrors"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/lgr"
	"qc-vision/internal/playback"
)

// JPEGQuality качество JPEG для размеченных снимков
const JPEGQuality = 90

// InspectionConfig настройки проверки снимков и видео
type InspectionConfig struct {
	TempDir         string // каталог временных копий видео; пусто: системный
	AnomalyDir      string // каталог исходных снимков с дефектами
	RecordAnomalies bool
}

// InspectionService проверяет снимки и видео на дефекты
type InspectionService struct {
	pipeline  port.FrameProcessor
	describer port.DefectDescriber
	opener    port.VideoOpener
	anomalies port.AnomalyRepository
	observers []port.InspectionObserver
	cfg       InspectionConfig
	loopOpts  []playback.Option
	now       func() time.Time
}

// ImageOutput результат проверки снимка
type ImageOutput struct {
	Detections  []entity.Detection
	Annotated   []byte // JPEG с разметкой
	Description string
	AnomalyPath string // путь сохранённого исходника, если аномалии записаны
}

// NewInspectionService создаёт сервис проверки
func NewInspectionService(
	pipeline port.FrameProcessor,
	describer port.DefectDescriber,
	opener port.VideoOpener,
	anomalies port.AnomalyRepository,
	cfg InspectionConfig,
	loopOpts ...playback.Option,
) *InspectionService {
	return &InspectionService{
		pipeline:  pipeline,
		describer: describer,
		opener:    opener,
		anomalies: anomalies,
		cfg:       cfg,
		loopOpts:  loopOpts,
		now:       time.Now,
	}
}

// Observe подключает наблюдателей за результатами проверок
func (s *InspectionService) Observe(observers ...port.InspectionObserver) {
	s.observers = append(s.observers, observers...)
}

// InspectImage находит дефекты на снимке с порогом threshold (проценты)
func (s *InspectionService) InspectImage(ctx context.Context, session *entity.Session, data []byte, threshold float64) (*ImageOutput, error) {
	if session == nil {
		return nil, entity.ErrNotLoggedIn
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, entity.Invalid("Не удалось прочитать изображение: поддерживаются JPEG, PNG, BMP и WebP.")
	}

	result, err := s.pipeline.Process(ctx, img, threshold)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, result.Annotated, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, xerrors.Errorf("encode annotated image: %w", err)
	}

	out := &ImageOutput{
		Detections: result.Detections,
		Annotated:  buf.Bytes(),
	}

	if s.describer != nil {
		description, err := s.describer.Describe(ctx, result.Detections)
		if err != nil {
			return nil, xerrors.Errorf("describe detections: %w", err)
		}
		out.Description = description
	}

	if s.cfg.RecordAnomalies && s.anomalies != nil && len(result.Detections) > 0 {
		path, err := s.recordAnomalies(ctx, data, format, result.Detections)
		if err != nil {
			lgr.Logger.Warn("record anomalies", "username", session.Username, "error", err)
		} else {
			out.AnomalyPath = path
		}
	}

	for _, o := range s.observers {
		o.ObserveImage(session.Username, result.Detections)
	}

	lgr.Logger.Info("image inspected",
		"username", session.Username,
		"format", format,
		"detections", len(result.Detections),
		"threshold", threshold,
	)
	return out, nil
}

// InspectVideo сохраняет видео во временный файл и прогоняет по нему цикл
// воспроизведения с порогом сессии. Временный файл удаляется при любом исходе.
func (s *InspectionService) InspectVideo(ctx context.Context, session *entity.Session, video io.Reader, name string, sinks ...port.PlaybackSink) (summary *entity.PlaybackSummary, err error) {
	if session == nil {
		return nil, entity.ErrNotLoggedIn
	}
	defer func() {
		for _, o := range s.observers {
			o.ObservePlayback(session.Username, summary, err)
		}
	}()

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".mp4"
	}

	path, remove, err := playback.TempCopy(s.cfg.TempDir, video, ext)
	if err != nil {
		return nil, entity.Wrap(entity.ErrSourceOpen, err)
	}
	defer remove()

	source, err := playback.Open(s.opener, path)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	lgr.Logger.Info("playback started",
		"username", session.Username,
		"session_id", session.ID.String(),
		"source_fps", source.FrameRate(),
		"total_frames", source.FrameCount(),
		"threshold", session.Confidence,
	)

	all := make([]port.PlaybackSink, 0, len(sinks)+len(s.observers))
	all = append(all, sinks...)
	for _, o := range s.observers {
		all = append(all, o)
	}

	opts := append([]playback.Option{playback.WithOwner(session.Username, session.ChatID)}, s.loopOpts...)
	loop := playback.NewLoop(source, s.pipeline, float64(session.Confidence), all, opts...)
	return loop.Run(ctx)
}

func (s *InspectionService) recordAnomalies(ctx context.Context, data []byte, format string, detections []entity.Detection) (string, error) {
	if err := os.MkdirAll(s.cfg.AnomalyDir, 0o755); err != nil {
		return "", xerrors.Errorf("create anomaly dir: %w", err)
	}

	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}
	path := filepath.Join(s.cfg.AnomalyDir, uuid.NewString()+ext)

	created := s.now()
	anomalies := make([]entity.Anomaly, 0, len(detections))
	for _, d := range detections {
		class, ok, err := s.anomalies.ClassByName(ctx, d.ClassName)
		if err != nil {
			return "", err
		}
		if !ok {
			lgr.Logger.Warn("unknown defect class, anomaly skipped", "class", d.ClassName)
			continue
		}
		anomalies = append(anomalies, entity.Anomaly{
			ImagePath: path,
			ClassID:   class.ID,
			Box:       d.Box,
			CreatedAt: created,
		})
	}
	if len(anomalies) == 0 {
		return "", nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", xerrors.Errorf("save anomaly image: %w", err)
	}
	if err := s.anomalies.Record(ctx, anomalies); err != nil {
		_ = os.Remove(path)
		return "", err
	}

	return path, nil
}
