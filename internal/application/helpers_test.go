package app

import (
	"context"
	"image"
	"image/color"
	"os"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/infrastructure/storage"
)

func TestMain(m *testing.M) {
	passwordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func seedUser(t *testing.T, repo *storage.MemoryUserRepository, username, password string, role entity.Role) *entity.User {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	user := &entity.User{Username: username, PasswordHash: hash, Role: role}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	return user
}

func adminSession() *entity.Session {
	return &entity.Session{ChatID: 1, UserID: 1, Username: "root", Role: entity.RoleAdmin, Confidence: 50}
}

func userSession() *entity.Session {
	return &entity.Session{ChatID: 2, UserID: 2, Username: "ivan", Role: entity.RoleUser, Confidence: 50}
}

// fakeProcessor возвращает заданные детекции и запоминает пороги
type fakeProcessor struct {
	detections []entity.Detection
	err        error
	thresholds []float64
}

func (p *fakeProcessor) Process(_ context.Context, frame image.Image, threshold float64) (*entity.FrameResult, error) {
	p.thresholds = append(p.thresholds, threshold)
	if p.err != nil {
		return nil, p.err
	}
	b := frame.Bounds()
	annotated := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			annotated.Set(x, y, frame.At(x, y))
		}
	}
	return &entity.FrameResult{Detections: p.detections, Annotated: annotated}, nil
}

type fakeDescriber struct{}

func (fakeDescriber) Describe(_ context.Context, detections []entity.Detection) (string, error) {
	if len(detections) == 0 {
		return "no defects", nil
	}
	return "defects found", nil
}

// fakeOpener открывает fakeSource и запоминает путь
type fakeOpener struct {
	err      error
	readErr  error // ошибка чтения начиная с кадра errAt
	errAt    int
	fps      int
	total    int
	paths    []string
	existed  []bool
	closed   bool
	lastOpen *fakeSource
}

func (o *fakeOpener) Open(path string) (port.VideoSource, error) {
	o.paths = append(o.paths, path)
	_, statErr := os.Stat(path)
	o.existed = append(o.existed, statErr == nil)
	if o.err != nil {
		return nil, o.err
	}
	o.lastOpen = &fakeSource{fps: o.fps, total: o.total, readErr: o.readErr, errAt: o.errAt, opener: o}
	return o.lastOpen, nil
}

type fakeSource struct {
	fps, total, cursor int
	readErr            error
	errAt              int
	opener             *fakeOpener
}

func (s *fakeSource) FrameRate() int  { return s.fps }
func (s *fakeSource) FrameCount() int { return s.total }

func (s *fakeSource) Read() (image.Image, bool, error) {
	if s.readErr != nil && s.cursor >= s.errAt {
		return nil, false, s.readErr
	}
	if s.cursor >= s.total {
		return nil, false, nil
	}
	s.cursor++
	return solidImage(8, 8, color.Gray{Y: 100}), true, nil
}

func (s *fakeSource) Seek(index int) error {
	s.cursor = index
	return nil
}

func (s *fakeSource) Close() error {
	s.opener.closed = true
	return nil
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// recordingObserver запоминает всё, что ему сообщили
type recordingObserver struct {
	frames    int
	images    [][]entity.Detection
	summaries []*entity.PlaybackSummary
	errs      []error
}

func (o *recordingObserver) Emit(context.Context, entity.PlaybackUpdate) error {
	o.frames++
	return nil
}

func (o *recordingObserver) ObserveImage(_ string, detections []entity.Detection) {
	o.images = append(o.images, detections)
}

func (o *recordingObserver) ObservePlayback(_ string, summary *entity.PlaybackSummary, err error) {
	o.summaries = append(o.summaries, summary)
	o.errs = append(o.errs, err)
}
