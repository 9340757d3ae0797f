package app

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/infrastructure/storage"
	"qc-vision/internal/playback"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(16, 12, color.Gray{Y: 200})))
	return buf.Bytes()
}

func TestInspectionService_InspectImage(t *testing.T) {
	proc := &fakeProcessor{detections: []entity.Detection{
		{ID: 1, ClassName: "scratch", Confidence: 91, Box: entity.BoundingBox{X0: 1, Y0: 1, X1: 5, Y1: 5}},
	}}
	svc := NewInspectionService(proc, fakeDescriber{}, nil, nil, InspectionConfig{})

	out, err := svc.InspectImage(context.Background(), userSession(), pngBytes(t), 40)
	require.NoError(t, err)
	require.Len(t, out.Detections, 1)
	require.Equal(t, "defects found", out.Description)
	require.Empty(t, out.AnomalyPath)
	require.Equal(t, []float64{40}, proc.thresholds)

	img, err := jpeg.Decode(bytes.NewReader(out.Annotated))
	require.NoError(t, err)
	require.Equal(t, 16, img.Bounds().Dx())
	require.Equal(t, 12, img.Bounds().Dy())
}

func TestInspectionService_InspectImageErrors(t *testing.T) {
	boom := entity.Wrap(entity.ErrDetection, errors.New("boom"))
	svc := NewInspectionService(&fakeProcessor{err: boom}, nil, nil, nil, InspectionConfig{})
	ctx := context.Background()

	_, err := svc.InspectImage(ctx, nil, pngBytes(t), 50)
	require.ErrorIs(t, err, entity.ErrNotLoggedIn)

	_, err = svc.InspectImage(ctx, userSession(), []byte("not an image"), 50)
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.InspectImage(ctx, userSession(), pngBytes(t), 50)
	require.ErrorIs(t, err, entity.ErrDetection)
}

func TestInspectionService_RecordsAnomalies(t *testing.T) {
	dir := t.TempDir()
	repo := storage.NewMemoryAnomalyRepository([]string{"scratch", "dent"})
	proc := &fakeProcessor{detections: []entity.Detection{
		{ID: 1, ClassName: "dent", Box: entity.BoundingBox{X0: 1, Y0: 2, X1: 3, Y1: 4}},
		{ID: 2, ClassName: "unknown"},
		{ID: 3, ClassName: "scratch", Box: entity.BoundingBox{X0: 5, Y0: 6, X1: 7, Y1: 8}},
	}}
	svc := NewInspectionService(proc, nil, nil, repo, InspectionConfig{AnomalyDir: dir, RecordAnomalies: true})
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	data := pngBytes(t)
	out, err := svc.InspectImage(context.Background(), userSession(), data, 50)
	require.NoError(t, err)
	require.NotEmpty(t, out.AnomalyPath)
	require.Equal(t, dir, filepath.Dir(out.AnomalyPath))
	require.True(t, strings.HasSuffix(out.AnomalyPath, ".png"))

	saved, err := os.ReadFile(out.AnomalyPath)
	require.NoError(t, err)
	require.Equal(t, data, saved)

	boxes, err := repo.ByImage(context.Background(), out.AnomalyPath)
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	require.Equal(t, "dent", boxes[0].DefectName)
	require.Equal(t, entity.BoundingBox{X0: 1, Y0: 2, X1: 3, Y1: 4}, boxes[0].Box)
	require.Equal(t, "scratch", boxes[1].DefectName)
	require.Equal(t, at, boxes[1].CreatedAt)
}

func TestInspectionService_NoDetectionsNoAnomalies(t *testing.T) {
	dir := t.TempDir()
	repo := storage.NewMemoryAnomalyRepository([]string{"scratch"})
	svc := NewInspectionService(&fakeProcessor{}, nil, nil, repo, InspectionConfig{AnomalyDir: dir, RecordAnomalies: true})

	out, err := svc.InspectImage(context.Background(), userSession(), pngBytes(t), 50)
	require.NoError(t, err)
	require.Empty(t, out.AnomalyPath)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestInspectionService_InspectVideo(t *testing.T) {
	tmp := t.TempDir()
	opener := &fakeOpener{fps: 10, total: 3}
	proc := &fakeProcessor{}
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewInspectionService(proc, nil, opener, nil, InspectionConfig{TempDir: tmp},
		playback.WithClock(func() time.Time { return fixed }))

	session := userSession()
	session.Confidence = 70

	var frames []int
	sink := port.PlaybackSinkFunc(func(_ context.Context, u entity.PlaybackUpdate) error {
		frames = append(frames, u.FrameIndex)
		require.Equal(t, "ivan", u.Username)
		require.Equal(t, int64(2), u.ChatID)
		return nil
	})

	summary, err := svc.InspectVideo(context.Background(), session, strings.NewReader("video-bytes"), "clip.AVI", sink)
	require.NoError(t, err)
	require.Equal(t, 3, summary.FramesDisplayed)
	require.Equal(t, []int{0, 1, 2}, frames)
	require.Equal(t, []float64{70, 70, 70}, proc.thresholds)

	require.Len(t, opener.paths, 1)
	require.True(t, opener.existed[0])
	require.True(t, strings.HasSuffix(opener.paths[0], ".avi"))
	require.True(t, opener.closed)

	_, statErr := os.Stat(opener.paths[0])
	require.True(t, os.IsNotExist(statErr))
}

func TestInspectionService_InspectVideoOpenFailureRemovesTemp(t *testing.T) {
	tmp := t.TempDir()
	opener := &fakeOpener{err: errors.New("codec missing")}
	svc := NewInspectionService(&fakeProcessor{}, nil, opener, nil, InspectionConfig{TempDir: tmp})

	_, err := svc.InspectVideo(context.Background(), userSession(), strings.NewReader("x"), "clip")
	require.ErrorIs(t, err, entity.ErrSourceOpen)
	require.True(t, strings.HasSuffix(opener.paths[0], ".mp4"))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestInspectionService_InspectVideoReadFailureRemovesTemp(t *testing.T) {
	tmp := t.TempDir()
	boom := errors.New("corrupted packet")
	opener := &fakeOpener{fps: 10, total: 5, readErr: boom, errAt: 2}
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewInspectionService(&fakeProcessor{}, nil, opener, nil, InspectionConfig{TempDir: tmp},
		playback.WithClock(func() time.Time { return fixed }))

	summary, err := svc.InspectVideo(context.Background(), userSession(), strings.NewReader("x"), "a.mp4")
	require.ErrorIs(t, err, entity.ErrSourceRead)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, summary.FramesDisplayed)
	require.True(t, opener.existed[0])
	require.True(t, opener.closed)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestInspectionService_InspectVideoDetectionFailureRemovesTemp(t *testing.T) {
	tmp := t.TempDir()
	boom := errors.New("model crashed")
	opener := &fakeOpener{fps: 10, total: 5}
	svc := NewInspectionService(&fakeProcessor{err: boom}, nil, opener, nil, InspectionConfig{TempDir: tmp})

	_, err := svc.InspectVideo(context.Background(), userSession(), strings.NewReader("x"), "a.mp4")
	require.ErrorIs(t, err, entity.ErrDetection)
	require.ErrorIs(t, err, boom)
	require.True(t, opener.existed[0])
	require.True(t, opener.closed)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestInspectionService_InspectVideoZeroFPS(t *testing.T) {
	tmp := t.TempDir()
	opener := &fakeOpener{fps: 0, total: 10}
	proc := &fakeProcessor{}
	svc := NewInspectionService(proc, nil, opener, nil, InspectionConfig{TempDir: tmp})

	_, err := svc.InspectVideo(context.Background(), userSession(), strings.NewReader("x"), "a.mp4")
	require.ErrorIs(t, err, entity.ErrSourceOpen)
	require.True(t, opener.closed)
	require.Empty(t, proc.thresholds)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestInspectionService_InspectVideoRequiresSession(t *testing.T) {
	svc := NewInspectionService(&fakeProcessor{}, nil, &fakeOpener{}, nil, InspectionConfig{})
	_, err := svc.InspectVideo(context.Background(), nil, strings.NewReader("x"), "a.mp4")
	require.ErrorIs(t, err, entity.ErrNotLoggedIn)
}

func TestInspectionService_NotifiesObservers(t *testing.T) {
	obs := &recordingObserver{}
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opener := &fakeOpener{fps: 25, total: 2}
	svc := NewInspectionService(&fakeProcessor{detections: []entity.Detection{{ID: 1, ClassName: "dent"}}}, nil, opener, nil,
		InspectionConfig{TempDir: t.TempDir()}, playback.WithClock(func() time.Time { return fixed }))
	svc.Observe(obs)
	ctx := context.Background()

	_, err := svc.InspectImage(ctx, userSession(), pngBytes(t), 50)
	require.NoError(t, err)
	require.Len(t, obs.images, 1)
	require.Equal(t, "dent", obs.images[0][0].ClassName)

	summary, err := svc.InspectVideo(ctx, userSession(), strings.NewReader("v"), "a.mp4")
	require.NoError(t, err)
	require.Equal(t, 2, obs.frames)
	require.Len(t, obs.summaries, 1)
	require.Same(t, summary, obs.summaries[0])
	require.NoError(t, obs.errs[0])

	opener.err = errors.New("broken")
	_, err = svc.InspectVideo(ctx, userSession(), strings.NewReader("v"), "a.mp4")
	require.ErrorIs(t, err, entity.ErrSourceOpen)
	require.Len(t, obs.summaries, 2)
	require.Nil(t, obs.summaries[1])
	require.ErrorIs(t, obs.errs[1], entity.ErrSourceOpen)
}
