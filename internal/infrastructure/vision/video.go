//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"qc-vision/internal/domain/port"
)

// CaptureOpener открывает видеофайлы через cv::VideoCapture.
type CaptureOpener struct{}

// Open открывает файл и читает его частоту кадров и длину.
func (CaptureOpener) Open(path string) (port.VideoSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("capture %s is not opened", path)
	}

	return &captureSource{
		capture: capture,
		frame:   gocv.NewMat(),
		fps:     int(capture.Get(gocv.VideoCaptureFPS)),
		total:   int(capture.Get(gocv.VideoCaptureFrameCount)),
	}, nil
}

type captureSource struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	fps     int
	total   int
	pos     int
}

func (s *captureSource) FrameRate() int  { return s.fps }
func (s *captureSource) FrameCount() int { return s.total }

func (s *captureSource) Read() (image.Image, bool, error) {
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, false, nil
	}
	s.pos++

	img, err := s.frame.ToImage()
	if err != nil {
		return nil, false, fmt.Errorf("convert frame %d: %w", s.pos-1, err)
	}
	return img, true, nil
}

// Seek переставляет курсор только при расхождении с текущей позицией:
// позиционирование в кодеке дорогое.
func (s *captureSource) Seek(index int) error {
	if index == s.pos {
		return nil
	}
	s.capture.Set(gocv.VideoCapturePosFrames, float64(index))
	s.pos = index
	return nil
}

func (s *captureSource) Close() error {
	if err := s.frame.Close(); err != nil {
		_ = s.capture.Close()
		return err
	}
	return s.capture.Close()
}

var _ port.VideoOpener = CaptureOpener{}
