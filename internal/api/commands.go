package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "qc-vision/internal/application"
	"qc-vision/internal/detection"
	"qc-vision/internal/domain/entity"
)

func (b *Bot) cmdLogin(ctx context.Context, msg *tgbotapi.Message, args []string) {
	chatID := msg.Chat.ID
	// в сообщении пароль
	b.deleteMessage(chatID, msg.MessageID)

	if len(args) != 2 {
		b.sendMessage(chatID, usageLogin)
		return
	}

	session, err := b.c.AuthService.Login(ctx, chatID, args[0], args[1])
	if err != nil {
		b.sendError(chatID, "login failed", err)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("✅ Вы вошли как %s (%s).\nПорог уверенности: %d%%\n\n%s",
		session.Username, session.Role, session.Confidence, msgSendMedia))
}

func (b *Bot) cmdLogout(ctx context.Context, chatID int64) {
	b.c.Playbacks.Stop(chatID)

	if err := b.c.AuthService.Logout(ctx, chatID); err != nil {
		b.sendError(chatID, "logout failed", err)
		return
	}

	b.mu.Lock()
	delete(b.anomalies, chatID)
	b.mu.Unlock()

	b.sendMessage(chatID, msgLoggedOut)
}

func (b *Bot) cmdWhoAmI(chatID int64) {
	session, err := b.c.AuthService.Session(chatID)
	if err != nil {
		b.sendError(chatID, "whoami", err)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("👤 %s, роль: %s\nПорог уверенности: %d%%\nВход: %s",
		session.Username, session.Role, session.Confidence, session.StartedAt.Format("02.01.2006 15:04")))
}

func (b *Bot) cmdConfidence(chatID int64, args []string) {
	session, err := b.c.AuthService.Session(chatID)
	if err != nil {
		b.sendError(chatID, "confidence", err)
		return
	}

	if len(args) == 0 {
		b.sendMessage(chatID, fmt.Sprintf("Порог уверенности: %d%%\n%s", session.Confidence, usageConfidence))
		return
	}

	value, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
	if err != nil {
		b.sendMessage(chatID, usageConfidence)
		return
	}
	if err := b.c.AuthService.SetConfidence(chatID, value); err != nil {
		b.sendError(chatID, "confidence", err)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("✅ Порог уверенности: %d%%", value))
}

func (b *Bot) cmdStop(chatID int64) {
	if b.c.Playbacks.Stop(chatID) {
		b.sendMessage(chatID, msgStopping)
		return
	}
	b.sendMessage(chatID, msgNothingToStop)
}

func (b *Bot) cmdUsers(ctx context.Context, chatID int64) {
	session, _ := b.c.AuthService.Session(chatID)
	users, err := b.c.UserService.List(ctx, session)
	if err != nil {
		b.sendError(chatID, "list users", err)
		return
	}
	if len(users) == 0 {
		b.sendMessage(chatID, msgNoUsers)
		return
	}

	var sb strings.Builder
	sb.WriteString("👥 Операторы:\n")
	for _, u := range users {
		fmt.Fprintf(&sb, "%d. %s\n", u.ID, u.Username)
	}
	b.sendMessage(chatID, sb.String())
}

func (b *Bot) cmdAddUser(ctx context.Context, msg *tgbotapi.Message, args []string) {
	chatID := msg.Chat.ID
	b.deleteMessage(chatID, msg.MessageID)

	if len(args) != 3 {
		b.sendMessage(chatID, usageAddUser)
		return
	}

	session, _ := b.c.AuthService.Session(chatID)
	user, err := b.c.UserService.Create(ctx, session, args[0], args[1], entity.Role(strings.ToLower(args[2])))
	if err != nil {
		b.sendError(chatID, "create user", err)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("✅ Пользователь %s (%s) создан.", user.Username, user.Role))
}

func (b *Bot) cmdDelUser(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		b.sendMessage(chatID, usageDelUser)
		return
	}

	session, _ := b.c.AuthService.Session(chatID)
	if err := b.c.UserService.Delete(ctx, session, args[0]); err != nil {
		b.sendError(chatID, "delete user", err)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("🗑 Пользователь %s удалён.", args[0]))
}

func (b *Bot) cmdPasswd(ctx context.Context, msg *tgbotapi.Message, args []string) {
	chatID := msg.Chat.ID
	b.deleteMessage(chatID, msg.MessageID)

	if len(args) != 3 {
		b.sendMessage(chatID, usagePasswd)
		return
	}

	session, _ := b.c.AuthService.Session(chatID)
	if err := b.c.UserService.ChangePassword(ctx, session, args[0], args[1], args[2]); err != nil {
		b.sendError(chatID, "change password", err)
		return
	}

	b.sendMessage(chatID, msgPasswordChanged)
}

func (b *Bot) cmdAnomalies(ctx context.Context, chatID int64) {
	session, _ := b.c.AuthService.Session(chatID)
	paths, err := b.c.LabelingService.WeekImages(ctx, session)
	if err != nil {
		b.sendError(chatID, "week images", err)
		return
	}

	b.mu.Lock()
	b.anomalies[chatID] = paths
	b.mu.Unlock()

	if len(paths) == 0 {
		b.sendMessage(chatID, msgNoAnomalies)
		return
	}

	var sb strings.Builder
	sb.WriteString("🗂 Снимки с аномалиями за неделю:\n")
	for i, p := range paths {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, filepath.Base(p))
	}
	sb.WriteString("\n" + usageBoxes)
	b.sendMessage(chatID, sb.String())
}

func (b *Bot) cmdBoxes(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		b.sendMessage(chatID, usageBoxes)
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		b.sendMessage(chatID, usageBoxes)
		return
	}

	b.mu.Lock()
	paths := b.anomalies[chatID]
	b.mu.Unlock()
	if len(paths) == 0 {
		b.sendMessage(chatID, msgRunAnomalies)
		return
	}
	if n < 1 || n > len(paths) {
		b.sendMessage(chatID, fmt.Sprintf("Номер снимка от 1 до %d.", len(paths)))
		return
	}
	path := paths[n-1]

	session, _ := b.c.AuthService.Session(chatID)
	anomalies, err := b.c.LabelingService.Boxes(ctx, session, path)
	if err != nil {
		b.sendError(chatID, "anomaly boxes", err)
		return
	}

	caption := boxesText(filepath.Base(path), anomalies)
	photo, err := renderAnomalies(path, anomalies)
	if err != nil {
		b.sendMessage(chatID, caption)
		return
	}

	cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: filepath.Base(path) + ".jpg", Bytes: photo})
	cfg.Caption = truncate(caption, captionLimit)
	b.send(cfg)
}

func (b *Bot) cmdRelabel(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		b.sendMessage(chatID, usageRelabel)
		return
	}
	anomalyID, err1 := strconv.ParseInt(args[0], 10, 64)
	classID, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil {
		b.sendMessage(chatID, usageRelabel)
		return
	}

	session, _ := b.c.AuthService.Session(chatID)
	if err := b.c.LabelingService.Relabel(ctx, session, anomalyID, classID); err != nil {
		b.sendError(chatID, "relabel", err)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("✅ Область %d переразмечена.", anomalyID))
}

func (b *Bot) cmdClasses(ctx context.Context, chatID int64) {
	classes, err := b.c.LabelingService.Classes(ctx)
	if err != nil {
		b.sendError(chatID, "classes", err)
		return
	}
	if len(classes) == 0 {
		b.sendMessage(chatID, msgNoClasses)
		return
	}

	var sb strings.Builder
	sb.WriteString("🏷 Классы дефектов:\n")
	for _, c := range classes {
		fmt.Fprintf(&sb, "%d. %s\n", c.ID, c.Name)
	}
	b.sendMessage(chatID, sb.String())
}

func boxesText(name string, anomalies []entity.Anomaly) string {
	if len(anomalies) == 0 {
		return name + ": областей нет."
	}

	var sb strings.Builder
	sb.WriteString(name + "\n")
	for _, a := range anomalies {
		fmt.Fprintf(&sb, "#%d %s (%d,%d)-(%d,%d)\n", a.ID, a.DefectName, a.Box.X0, a.Box.Y0, a.Box.X1, a.Box.Y1)
	}
	return sb.String()
}

// renderAnomalies рисует области аномалий на сохранённом снимке
func renderAnomalies(path string, anomalies []entity.Anomaly) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	detections := make([]entity.Detection, 0, len(anomalies))
	for _, a := range anomalies {
		detections = append(detections, entity.Detection{ID: int(a.ID), ClassName: a.DefectName, Box: a.Box})
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, detection.Annotate(img, detections), &jpeg.Options{Quality: app.JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
