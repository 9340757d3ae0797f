package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPlaybackState_AdvanceSkipsWhenBehind(t *testing.T) {
	s := NewPlaybackState(10, 100, time.Now())
	s.FrameIndex = 5

	s.Advance(2500 * time.Millisecond)

	require.Equal(t, 25, s.FrameIndex)
	require.Equal(t, 19, s.FramesSkipped)
	require.Equal(t, 1, s.FramesDisplayed)
}

func TestPlaybackState_AdvanceNaturalStep(t *testing.T) {
	s := NewPlaybackState(10, 100, time.Now())
	s.FrameIndex = 5

	// ожидаемый кадр 3 < 5: отставания нет
	s.Advance(350 * time.Millisecond)

	require.Equal(t, 6, s.FrameIndex)
	require.Equal(t, 0, s.FramesSkipped)
	require.Equal(t, 1, s.FramesDisplayed)
}

func TestPlaybackState_AdvanceEqualIsNotBehind(t *testing.T) {
	s := NewPlaybackState(10, 100, time.Now())
	s.FrameIndex = 5

	s.Advance(500 * time.Millisecond)

	require.Equal(t, 6, s.FrameIndex)
	require.Equal(t, 0, s.FramesSkipped)
}

func TestPlaybackState_Exhausted(t *testing.T) {
	s := NewPlaybackState(25, 100, time.Now())
	require.False(t, s.Exhausted())
	s.FrameIndex = 100
	require.True(t, s.Exhausted())
	s.FrameIndex = 130
	require.True(t, s.Exhausted())
}

func TestExpectedFrameIndex(t *testing.T) {
	require.Equal(t, 25, ExpectedFrameIndex(2500*time.Millisecond, 10))
	require.Equal(t, 0, ExpectedFrameIndex(0, 30))
	require.Equal(t, 7, ExpectedFrameIndex(250*time.Millisecond, 30))
}

func TestDisplayFPS_ZeroDelta(t *testing.T) {
	require.Equal(t, 0.0, DisplayFPS(0))
	require.Equal(t, 0.0, DisplayFPS(-time.Second))
	require.InDelta(t, 4.0, DisplayFPS(250*time.Millisecond), 1e-9)
}

func TestPercentages(t *testing.T) {
	skipped, displayed := Percentages(0, 0)
	require.Equal(t, 0.0, skipped)
	require.Equal(t, 0.0, displayed)

	skipped, displayed = Percentages(1, 3)
	require.Equal(t, 25.0, skipped)
	require.Equal(t, 75.0, displayed)
}

func TestPlaybackState_Metrics(t *testing.T) {
	s := NewPlaybackState(30, 300, time.Now())
	s.FramesSkipped = 3
	s.FramesDisplayed = 1

	m := s.Metrics(12.5, 80*time.Millisecond, 2*time.Second)

	require.Equal(t, 30, m.SourceFPS)
	require.Equal(t, 12.5, m.DisplayFPS)
	require.InDelta(t, 0.08, m.FrameProcessingSeconds, 1e-9)
	require.Equal(t, 75.0, m.FramesSkippedPct)
	require.Equal(t, 25.0, m.FramesDisplayedPct)
	require.Equal(t, 2.0, m.ElapsedSeconds)
	require.Equal(t, 4, m.FramesPassed())
	require.Contains(t, m.String(), "Frames Skipped: 3/4 (75.00%)")
}

func TestElapsedText(t *testing.T) {
	require.Equal(t, "Video Duration: 1.50 sec", ElapsedText(1500*time.Millisecond))
}

func TestWrap_MatchesKindAndCause(t *testing.T) {
	cause := Invalid("boom")
	err := Wrap(ErrSourceRead, cause)
	require.ErrorIs(t, err, ErrSourceRead)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "video source read failed: boom", err.Error())
}
