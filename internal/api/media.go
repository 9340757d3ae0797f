package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "qc-vision/internal/application"
	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/infrastructure/describer"
	"qc-vision/internal/lgr"
)

// handlePhoto проверяет фото с порогом сессии
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	session, err := b.c.AuthService.Session(chatID)
	if err != nil {
		b.sendError(chatID, "photo", err)
		return
	}

	b.sendMessage(chatID, msgProcessing)

	// Получаем файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(photo.FileID)
	if err != nil {
		b.sendError(chatID, "download photo", err)
		return
	}

	out, err := b.c.InspectionService.InspectImage(ctx, session, imageData, float64(session.Confidence))
	if err != nil {
		b.sendError(chatID, "inspect photo", err)
		return
	}

	caption := fmt.Sprintf("🔍 Порог уверенности: %d%%, найдено: %d\n\n%s",
		session.Confidence, len(out.Detections), describer.Table(out.Detections))

	cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "result.jpg", Bytes: out.Annotated})
	if utf8.RuneCountInString(caption) <= captionLimit {
		cfg.Caption = caption
		b.send(cfg)
		return
	}
	b.send(cfg)
	b.sendMessage(chatID, caption)
}

// handleVideo запускает воспроизведение видео в отдельной горутине;
// в чате одновременно идёт не больше одного воспроизведения.
func (b *Bot) handleVideo(ctx context.Context, msg *tgbotapi.Message, fileID, fileName string) {
	chatID := msg.Chat.ID

	session, err := b.c.AuthService.Session(chatID)
	if err != nil {
		b.sendError(chatID, "video", err)
		return
	}

	playCtx, done, err := b.c.Playbacks.Start(ctx, chatID)
	if err != nil {
		b.sendError(chatID, "video", err)
		return
	}

	status, ok := b.send(tgbotapi.NewMessage(chatID, msgVideoDownloading))
	if !ok {
		done()
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer done()
		b.playVideo(playCtx, session, fileID, fileName, status.MessageID)
	}()
}

func (b *Bot) playVideo(ctx context.Context, session *entity.Session, fileID, fileName string, statusID int) {
	chatID := session.ChatID

	body, err := b.fetch(fileID)
	if err != nil {
		b.sendError(chatID, "download video", err)
		return
	}
	defer body.Close()

	sink := newProgressSink(b.api, chatID, statusID, b.progressInterval)
	summary, err := b.c.InspectionService.InspectVideo(ctx, session, body, fileName, sink)

	stopped := errors.Is(err, entity.ErrPlaybackCancelled)
	if err != nil && !stopped {
		b.sendError(chatID, "playback", err)
	}
	if summary == nil || summary.FramesDisplayed == 0 {
		if stopped {
			b.sendMessage(chatID, errorText(err))
		}
		return
	}

	text := summaryText(summary, stopped)
	if summary.LastFrame == nil {
		b.sendMessage(chatID, text)
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, summary.LastFrame, &jpeg.Options{Quality: app.JPEGQuality}); err != nil {
		lgr.Logger.Warn("encode last frame", "chat_id", chatID, "error", err)
		b.sendMessage(chatID, text)
		return
	}

	cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "last-frame.jpg", Bytes: buf.Bytes()})
	cfg.Caption = truncate(text, captionLimit)
	b.send(cfg)
}

// progressSink показывает метрики воспроизведения, редактируя одно
// сообщение не чаще раза в interval.
type progressSink struct {
	api       botAPI
	chatID    int64
	messageID int
	interval  time.Duration
	now       func() time.Time

	mu   sync.Mutex
	last time.Time
	sent int
}

func newProgressSink(api botAPI, chatID int64, messageID int, interval time.Duration) *progressSink {
	return &progressSink{
		api:       api,
		chatID:    chatID,
		messageID: messageID,
		interval:  interval,
		now:       time.Now,
	}
}

// Emit не возвращает ошибок Telegram: медленный или недоступный чат
// не должен останавливать воспроизведение.
func (s *progressSink) Emit(ctx context.Context, update entity.PlaybackUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		return nil
	}
	s.last = now

	edit := tgbotapi.NewEditMessageText(s.chatID, s.messageID, progressText(update))
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := s.api.Send(edit); err != nil {
		lgr.Logger.Debug("progress edit failed", "chat_id", s.chatID, "error", err)
		return nil
	}
	s.sent++
	return nil
}

var _ port.PlaybackSink = (*progressSink)(nil)
