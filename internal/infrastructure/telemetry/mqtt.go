package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/lgr"
)

const publishTimeout = 2 * time.Second

// MQTTConfig параметры брокера
type MQTTConfig struct {
	Broker   string // host:port или URL
	ClientID string
	Topic    string // корень топиков, например qc/line1
	QoS      byte
}

// MQTTPublisher публикует метрики кадров и результаты проверок в MQTT.
// Ошибки публикации не останавливают воспроизведение: они логируются
// и учитываются в статистике.
type MQTTPublisher struct {
	cfg    MQTTConfig
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// MQTTStats статистика публикаций
type MQTTStats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// playbackMessage полезная нагрузка топика <root>/playback
type playbackMessage struct {
	Username   string                 `json:"username,omitempty"`
	ChatID     int64                  `json:"chat_id,omitempty"`
	FrameIndex int                    `json:"frame_index"`
	Metrics    entity.PlaybackMetrics `json:"metrics"`
	Detections []entity.Detection     `json:"detections"`
	Elapsed    string                 `json:"elapsed"`
	Time       time.Time              `json:"time"`
}

// inspectionMessage полезная нагрузка топика <root>/inspection
type inspectionMessage struct {
	Username   string             `json:"username"`
	Detections []entity.Detection `json:"detections"`
	Time       time.Time          `json:"time"`
}

// summaryMessage полезная нагрузка топика <root>/summary
type summaryMessage struct {
	Username        string    `json:"username"`
	SourceFPS       int       `json:"source_fps"`
	TotalFrames     int       `json:"total_frames"`
	FramesSkipped   int       `json:"frames_skipped"`
	FramesDisplayed int       `json:"frames_displayed"`
	DurationSeconds float64   `json:"duration_seconds"`
	Error           string    `json:"error,omitempty"`
	Time            time.Time `json:"time"`
}

// NewMQTTPublisher создаёт издателя; соединение открывает Connect
func NewMQTTPublisher(cfg MQTTConfig) *MQTTPublisher {
	p := &MQTTPublisher{cfg: cfg}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		p.setConnected(true)
		lgr.Logger.Info("mqtt connection established", "broker", cfg.Broker, "client_id", cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.setConnected(false)
		lgr.Logger.Warn("mqtt connection lost, will auto-reconnect", "broker", cfg.Broker, "error", err)
	}

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect подключается к брокеру
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	lgr.Logger.Info("connecting to mqtt broker", "broker", p.cfg.Broker)

	token := p.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	p.setConnected(true)
	return nil
}

// Emit публикует метрики итерации воспроизведения
func (p *MQTTPublisher) Emit(ctx context.Context, update entity.PlaybackUpdate) error {
	p.publish(p.cfg.Topic+"/playback", playbackMessage{
		Username:   update.Username,
		ChatID:     update.ChatID,
		FrameIndex: update.FrameIndex,
		Metrics:    update.Metrics,
		Detections: update.Detections,
		Elapsed:    update.Elapsed,
		Time:       time.Now(),
	})
	return nil
}

// ObserveImage публикует результат проверки снимка
func (p *MQTTPublisher) ObserveImage(username string, detections []entity.Detection) {
	p.publish(p.cfg.Topic+"/inspection", inspectionMessage{
		Username:   username,
		Detections: detections,
		Time:       time.Now(),
	})
}

// ObservePlayback публикует итог воспроизведения
func (p *MQTTPublisher) ObservePlayback(username string, summary *entity.PlaybackSummary, err error) {
	msg := summaryMessage{Username: username, Time: time.Now()}
	if summary != nil {
		msg.SourceFPS = summary.FrameRate
		msg.TotalFrames = summary.TotalFrames
		msg.FramesSkipped = summary.FramesSkipped
		msg.FramesDisplayed = summary.FramesDisplayed
		msg.DurationSeconds = summary.Duration.Seconds()
	}
	if err != nil {
		msg.Error = err.Error()
	}
	p.publish(p.cfg.Topic+"/summary", msg)
}

// Disconnect закрывает соединение
func (p *MQTTPublisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		lgr.Logger.Info("mqtt disconnected")
	}
	p.setConnected(false)
}

// Stats возвращает статистику публикаций
func (p *MQTTPublisher) Stats() MQTTStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return MQTTStats{Connected: p.connected, Published: p.published, Errors: p.errors}
}

func (p *MQTTPublisher) publish(topic string, message any) {
	if !p.isConnected() {
		p.countError()
		lgr.Logger.Debug("mqtt not connected, message dropped", "topic", topic)
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		p.countError()
		lgr.Logger.Warn("mqtt marshal failed", "topic", topic, "error", err)
		return
	}

	token := p.client.Publish(topic, p.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.countError()
		lgr.Logger.Warn("mqtt publish timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		p.countError()
		lgr.Logger.Warn("mqtt publish failed", "topic", topic, "error", err)
		return
	}

	p.mu.Lock()
	p.published++
	p.mu.Unlock()

	lgr.Logger.Debug("mqtt message published", "topic", topic, "size", len(payload))
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *MQTTPublisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *MQTTPublisher) countError() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

var _ port.InspectionObserver = (*MQTTPublisher)(nil)
