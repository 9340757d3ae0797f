package playback

import (
	"io"
	"os"

	"golang.org/x/xerrors"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
)

// Open открывает видео и проверяет его свойства.
// Любая неудача: entity.ErrSourceOpen, источник при этом уже закрыт.
func Open(opener port.VideoOpener, path string) (port.VideoSource, error) {
	source, err := opener.Open(path)
	if err != nil {
		return nil, entity.Wrap(entity.ErrSourceOpen, err)
	}

	if source.FrameRate() <= 0 {
		_ = source.Close()
		return nil, entity.Wrap(entity.ErrSourceOpen, xerrors.Errorf("invalid frame rate %d", source.FrameRate()))
	}

	return source, nil
}

// TempCopy сохраняет загруженное видео во временный файл.
// Вызывающий обязан удалить файл через возвращённую функцию.
func TempCopy(dir string, r io.Reader, suffix string) (path string, remove func(), err error) {
	f, err := os.CreateTemp(dir, "qc-video-*"+suffix)
	if err != nil {
		return "", func() {}, xerrors.Errorf("create temp file: %w", err)
	}

	remove = func() {
		_ = os.Remove(f.Name())
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		remove()
		return "", func() {}, xerrors.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		remove()
		return "", func() {}, xerrors.Errorf("close temp file: %w", err)
	}

	return f.Name(), remove, nil
}
