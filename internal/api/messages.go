package telegram

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/infrastructure/describer"
)

const (
	msgStart = `👋 Привет! Я бот контроля качества: нахожу дефекты на фото и видео изделий.

🔐 Сначала войдите: /login <имя> <пароль>

📸 Отправьте фото — получите разметку и таблицу дефектов.
🎬 Отправьте видео — покажу разметку в темпе воспроизведения.

/help — список команд`

	msgHelp = `ℹ️ Команды:

/login <имя> <пароль> — вход
/logout — выход
/whoami — текущая сессия
/confidence [0..100] — порог уверенности, шаг 10
/stop — остановить воспроизведение видео
/passwd <старый> <новый> <повтор> — сменить пароль

🗂 Разметка аномалий:
/anomalies — снимки с аномалиями за неделю
/boxes <n> — области дефектов на снимке n
/classes — классы дефектов
/relabel <id> <класс> — сменить класс области (админ)

👥 Администрирование:
/users — операторы
/adduser <имя> <пароль> <admin|user> — добавить
/deluser <имя> — удалить`

	msgSendMedia        = "📸 Отправьте фото или видео изделия для проверки."
	msgUnknownCommand   = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing       = "⏳ Обрабатываю изображение..."
	msgVideoDownloading = "⏳ Загружаю видео..."
	msgLoggedOut        = "👋 Вы вышли из системы."
	msgStopping         = "⏹ Останавливаю воспроизведение..."
	msgNothingToStop    = "Воспроизведение не запущено."
	msgNoUsers          = "Операторов нет."
	msgNoAnomalies      = "За эту неделю аномалий нет."
	msgNoClasses        = "Справочник классов пуст."
	msgRunAnomalies     = "Сначала получите список: /anomalies"
	msgPasswordChanged  = "✅ Пароль изменён."

	maxTableRunes = 3000
	captionLimit  = 1024
	messageLimit  = 4096

	usageLogin      = "Использование: /login <имя> <пароль>"
	usageConfidence = "Использование: /confidence <0..100>"
	usageAddUser    = "Использование: /adduser <имя> <пароль> <admin|user>"
	usageDelUser    = "Использование: /deluser <имя>"
	usagePasswd     = "Использование: /passwd <старый> <новый> <повтор>"
	usageBoxes      = "Использование: /boxes <n>"
	usageRelabel    = "Использование: /relabel <id> <класс>"
)

// errorText переводит ошибку в сообщение пользователю
func errorText(err error) string {
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		return "⚠️ " + verr.Message
	case errors.Is(err, entity.ErrNotLoggedIn):
		return "🔐 Сначала войдите: /login <имя> <пароль>"
	case errors.Is(err, entity.ErrInvalidCredentials):
		return "❌ Неверное имя пользователя или пароль."
	case errors.Is(err, entity.ErrForbidden):
		return "⛔ Команда доступна только администратору."
	case errors.Is(err, entity.ErrUserExists):
		return "⚠️ Пользователь с таким именем уже есть."
	case errors.Is(err, entity.ErrUserNotFound):
		return "⚠️ Пользователь не найден."
	case errors.Is(err, entity.ErrAnomalyNotFound):
		return "⚠️ Аномалия не найдена."
	case errors.Is(err, entity.ErrPlaybackRunning):
		return "🎬 Видео уже воспроизводится. Остановить: /stop"
	case errors.Is(err, entity.ErrPlaybackCancelled):
		return "⏹ Воспроизведение остановлено."
	case errors.Is(err, entity.ErrSourceOpen):
		return "⚠️ Не удалось открыть видео. Проверьте формат файла."
	case errors.Is(err, entity.ErrSourceRead):
		return "⚠️ Ошибка чтения видео."
	case errors.Is(err, entity.ErrDetection):
		return "⚠️ Не удалось обработать изображение. Попробуйте другое."
	default:
		return "⚠️ Что-то пошло не так. Попробуйте позже."
	}
}

// progressText текст сообщения с метриками воспроизведения
func progressText(update entity.PlaybackUpdate) string {
	var sb strings.Builder
	sb.WriteString("🎬 <b>Кадр ")
	fmt.Fprintf(&sb, "%d</b>\n", update.FrameIndex)
	sb.WriteString("<pre>")
	sb.WriteString(html.EscapeString(update.Metrics.String()))
	sb.WriteString("\n")
	sb.WriteString(html.EscapeString(update.Elapsed))
	sb.WriteString("</pre>\n<pre>")
	sb.WriteString(html.EscapeString(truncate(describer.Table(update.Detections), maxTableRunes)))
	sb.WriteString("</pre>")
	return sb.String()
}

// summaryText итог воспроизведения
func summaryText(summary *entity.PlaybackSummary, stopped bool) string {
	title := "✅ Воспроизведение завершено"
	if stopped {
		title = "⏹ Воспроизведение остановлено"
	}
	return fmt.Sprintf("%s\nКадров показано: %d, пропущено: %d из %d\n%s\n\n%s",
		title,
		summary.FramesDisplayed,
		summary.FramesSkipped,
		summary.TotalFrames,
		entity.ElapsedText(summary.Duration),
		describer.Table(summary.LastDetections),
	)
}

// truncate обрезает текст до лимита Telegram, считая символы
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
