package detection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"qc-vision/internal/domain/entity"
)

func scenarioOutput() *entity.ModelOutput {
	return &entity.ModelOutput{
		Names: []string{"scratch", "dent"},
		Candidates: []entity.Candidate{
			{ClassIndex: 0, Confidence: 0.92, CenterX: 50, CenterY: 50, Width: 20, Height: 20},
			{ClassIndex: 1, Confidence: 0.40, CenterX: 100, CenterY: 100, Width: 10, Height: 10},
			{ClassIndex: 0, Confidence: 0.75, CenterX: 200, CenterY: 200, Width: 30, Height: 30},
		},
	}
}

func TestExtract_Scenario(t *testing.T) {
	got := Extract(scenarioOutput(), 50)
	require.Len(t, got, 2)

	require.Equal(t, 1, got[0].ID)
	require.Equal(t, "scratch", got[0].ClassName)
	require.InDelta(t, 92.0, got[0].Confidence, 1e-9)
	require.Equal(t, entity.BoundingBox{X0: 40, Y0: 40, X1: 60, Y1: 60}, got[0].Box)
	require.Equal(t, 5.0, got[0].PhysicalWidth)
	require.Equal(t, 5.0, got[0].PhysicalHeight)

	require.Equal(t, 2, got[1].ID)
	require.Equal(t, "scratch", got[1].ClassName)
	require.InDelta(t, 75.0, got[1].Confidence, 1e-9)
	require.Equal(t, entity.BoundingBox{X0: 185, Y0: 185, X1: 215, Y1: 215}, got[1].Box)
	require.Equal(t, 7.5, got[1].PhysicalWidth)
	require.Equal(t, 7.5, got[1].PhysicalHeight)
}

func TestExtract_BoundaryIsKept(t *testing.T) {
	out := &entity.ModelOutput{
		Names: []string{"crack"},
		Candidates: []entity.Candidate{
			{ClassIndex: 0, Confidence: 0.5, CenterX: 10, CenterY: 10, Width: 4, Height: 4},
			{ClassIndex: 0, Confidence: 0.25, CenterX: 10, CenterY: 10, Width: 4, Height: 4},
		},
	}

	got := Extract(out, 50)
	require.Len(t, got, 1)
	require.Equal(t, 50.0, got[0].Confidence)

	require.Len(t, Extract(out, 25), 2)
	require.Empty(t, Extract(out, 60))
}

func TestExtract_Float32ScoreAtThresholdIsKept(t *testing.T) {
	for _, tenths := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9} {
		score := float32(tenths) / 10
		out := &entity.ModelOutput{
			Names:      []string{"crack"},
			Candidates: []entity.Candidate{{ClassIndex: 0, Confidence: float64(score), Width: 2, Height: 2}},
		}

		threshold := float64(tenths * 10)
		got := Extract(out, threshold)
		require.Len(t, got, 1, "score %v at threshold %v", score, threshold)
		require.GreaterOrEqual(t, got[0].Confidence, threshold)
		require.InDelta(t, threshold, got[0].Confidence, 1e-5)
	}

	require.Equal(t, 70.0, Percent(float64(float32(0.7))))
	require.Equal(t, 90.0, Percent(float64(float32(0.9))))
}

func TestExtract_ZeroThresholdKeepsAll(t *testing.T) {
	got := Extract(scenarioOutput(), 0)
	require.Len(t, got, 3)
	for i, d := range got {
		require.Equal(t, i+1, d.ID)
	}
	require.Equal(t, "dent", got[1].ClassName)
}

func TestExtract_UnknownClassAndNil(t *testing.T) {
	require.Nil(t, Extract(nil, 0))

	out := &entity.ModelOutput{
		Candidates: []entity.Candidate{{ClassIndex: 7, Confidence: 1, CenterX: 5, CenterY: 5, Width: 2, Height: 2}},
	}
	got := Extract(out, 0)
	require.Len(t, got, 1)
	require.Equal(t, "class_7", got[0].ClassName)
}

func TestExtract_ClampsConfidence(t *testing.T) {
	out := &entity.ModelOutput{
		Names:      []string{"dent"},
		Candidates: []entity.Candidate{{ClassIndex: 0, Confidence: 1.2, Width: 2, Height: 2}},
	}
	got := Extract(out, 100)
	require.Len(t, got, 1)
	require.Equal(t, 100.0, got[0].Confidence)
}

func TestCorners_Ordered(t *testing.T) {
	cases := [][4]float64{
		{50, 50, 20, 20},
		{10.7, 3.5, 5.5, 0.4},
		{0, 0, 0, 0},
		{3, 3, 9, 9},
	}
	for _, c := range cases {
		b := Corners(c[0], c[1], c[2], c[3])
		require.LessOrEqual(t, b.X0, b.X1)
		require.LessOrEqual(t, b.Y0, b.Y1)
	}

	b := Corners(10.7, 3.5, 5.5, 0.4)
	require.Equal(t, entity.BoundingBox{X0: 7, Y0: 3, X1: 13, Y1: 3}, b)
}

func TestExtract_NegativeSizeKeepsInvariant(t *testing.T) {
	out := &entity.ModelOutput{
		Names:      []string{"dent"},
		Candidates: []entity.Candidate{{ClassIndex: 0, Confidence: 0.9, CenterX: 20, CenterY: 20, Width: -8, Height: -4}},
	}
	got := Extract(out, 0)
	require.Equal(t, entity.BoundingBox{X0: 16, Y0: 18, X1: 24, Y1: 22}, got[0].Box)
	require.Equal(t, 2.0, got[0].PhysicalWidth)
	require.Equal(t, 1.0, got[0].PhysicalHeight)
}
