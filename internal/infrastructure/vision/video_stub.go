//go:build !gocv
// +build !gocv

package vision

import (
	"errors"

	"qc-vision/internal/domain/port"
)

// CaptureOpener заглушка для сборки без OpenCV.
type CaptureOpener struct{}

// Open возвращает ошибку, если сборка без тега gocv.
func (CaptureOpener) Open(path string) (port.VideoSource, error) {
	_ = path
	return nil, errors.New("gocv build tag is not enabled")
}

var _ port.VideoOpener = CaptureOpener{}
