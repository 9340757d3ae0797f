package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"qc-vision/internal/container"
	"qc-vision/internal/lgr"
)

// botAPI методы Telegram Bot API, которые использует бот
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot представляет Telegram-бота
type Bot struct {
	api              botAPI
	token            string
	c                *container.Container
	progressInterval time.Duration
	fetch            func(fileID string) (io.ReadCloser, error)

	wg sync.WaitGroup

	mu        sync.Mutex
	anomalies map[int64][]string // последний список /anomalies по чату
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, progressInterval time.Duration) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	lgr.Logger.Info("authorized on telegram", "account", api.Self.UserName)

	return newBot(api, token, c, progressInterval), nil
}

func newBot(api botAPI, token string, c *container.Container, progressInterval time.Duration) *Bot {
	b := &Bot{
		api:              api,
		token:            token,
		c:                c,
		progressInterval: progressInterval,
		anomalies:        make(map[int64][]string),
	}
	b.fetch = b.openFile
	return b
}

// Run запускает основной цикл обработки сообщений до отмены ctx.
// При выходе останавливает воспроизведения и ждёт их завершения.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.c.Playbacks.StopAll()
			b.wg.Wait()
			return nil

		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Обработка фото
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	// Видео и видеофайлы
	if msg.Video != nil {
		b.handleVideo(ctx, msg, msg.Video.FileID, msg.Video.FileName)
		return
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "video/") {
		b.handleVideo(ctx, msg, msg.Document.FileID, msg.Document.FileName)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendMedia)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.sendMessage(chatID, msgStart)
	case "help":
		b.sendMessage(chatID, msgHelp)
	case "login":
		b.cmdLogin(ctx, msg, args)
	case "logout":
		b.cmdLogout(ctx, chatID)
	case "whoami":
		b.cmdWhoAmI(chatID)
	case "confidence":
		b.cmdConfidence(chatID, args)
	case "stop":
		b.cmdStop(chatID)
	case "users":
		b.cmdUsers(ctx, chatID)
	case "adduser":
		b.cmdAddUser(ctx, msg, args)
	case "deluser":
		b.cmdDelUser(ctx, chatID, args)
	case "passwd":
		b.cmdPasswd(ctx, msg, args)
	case "anomalies":
		b.cmdAnomalies(ctx, chatID)
	case "boxes":
		b.cmdBoxes(ctx, chatID, args)
	case "relabel":
		b.cmdRelabel(ctx, chatID, args)
	case "classes":
		b.cmdClasses(ctx, chatID)
	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// openFile открывает поток файла из Telegram
func (b *Bot) openFile(fileID string) (io.ReadCloser, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	resp, err := http.Get(file.Link(b.token))
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download file: status %s", resp.Status)
	}

	return resp.Body, nil
}

// downloadFile скачивает файл из Telegram целиком
func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	body, err := b.fetch(fileID)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, truncate(text, messageLimit)))
}

// sendError отправляет пользователю текст ошибки и логирует её
func (b *Bot) sendError(chatID int64, op string, err error) {
	lgr.Logger.Warn(op, "chat_id", chatID, "error", err)
	b.sendMessage(chatID, errorText(err))
}

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, bool) {
	m, err := b.api.Send(c)
	if err != nil {
		lgr.Logger.Error("telegram send failed", "error", err)
		return m, false
	}
	return m, true
}

// deleteMessage удаляет сообщение, например с паролем
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		lgr.Logger.Warn("telegram delete failed", "chat_id", chatID, "error", err)
	}
}
