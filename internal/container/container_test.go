package container

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/infrastructure/describer"
	"qc-vision/internal/infrastructure/storage"
)

type stubModel struct{}

func (stubModel) Predict(_ context.Context, frame image.Image, _ float64) (*entity.ModelOutput, error) {
	return &entity.ModelOutput{
		Candidates: []entity.Candidate{{ClassIndex: 0, Confidence: 0.9, CenterX: 8, CenterY: 8, Width: 4, Height: 4}},
		Names:      []string{"scratch"},
		Image:      frame,
	}, nil
}

func TestContainer_Wiring(t *testing.T) {
	ctx := context.Background()
	users := storage.NewMemoryUserRepository()
	c := New(Deps{
		Users:             users,
		Operations:        storage.NewMemoryOperationRepository(),
		Anomalies:         storage.NewMemoryAnomalyRepository([]string{"scratch"}),
		Model:             stubModel{},
		Describer:         describer.TableDescriber{},
		DefaultConfidence: 50,
	})

	created, err := c.UserService.Bootstrap(ctx, "root", "rootpass1")
	require.NoError(t, err)
	require.True(t, created)

	session, err := c.AuthService.Login(ctx, 42, "root", "rootpass1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))))

	out, err := c.InspectionService.InspectImage(ctx, session, buf.Bytes(), float64(session.Confidence))
	require.NoError(t, err)
	require.Len(t, out.Detections, 1)
	require.Equal(t, "scratch", out.Detections[0].ClassName)
	require.Contains(t, out.Description, "scratch")

	classes, err := c.LabelingService.Classes(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 1)
}
