package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config настройки приложения.
// Порядок источников: значения по умолчанию, YAML-файл из CONFIG_FILE,
// переменные окружения (и .env).
type Config struct {
	TelegramToken string `yaml:"telegram_token"`
	DatabaseURL   string `yaml:"database_url"` // пусто хранилища в памяти

	ModelPath          string  `yaml:"model_path"`
	LabelsPath         string  `yaml:"labels_path"`
	ModelInputSize     int     `yaml:"model_input_size"`
	ModelMinConfidence float64 `yaml:"model_min_confidence"`
	NMSThreshold       float64 `yaml:"nms_threshold"`
	DefaultConfidence  int     `yaml:"default_confidence"` // проценты

	AnomalyDir      string `yaml:"anomaly_dir"`
	RecordAnomalies bool   `yaml:"record_anomalies"`
	Timezone        string `yaml:"timezone"`
	TempDir         string `yaml:"temp_dir"`

	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
	JournalFile string `yaml:"journal_file"`
	TraceFile   string `yaml:"trace_file"` // пусто: трассировка выключена
	MetricsAddr string `yaml:"metrics_addr"`

	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTTopic    string `yaml:"mqtt_topic"`
	MQTTClientID string `yaml:"mqtt_client_id"`

	ProgressInterval time.Duration `yaml:"progress_interval"`

	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		ModelPath:          "model/best.onnx",
		LabelsPath:         "model/classes.names",
		ModelInputSize:     640,
		ModelMinConfidence: 0.25,
		NMSThreshold:       0.45,
		DefaultConfidence:  50,
		AnomalyDir:         "data/anomalies",
		Timezone:           "Asia/Jakarta",
		LogLevel:           "info",
		MQTTTopic:          "qc-vision",
		MQTTClientID:       "qc-vision",
		ProgressInterval:   2 * time.Second,
	}
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	envString("TELEGRAM_TOKEN", &c.TelegramToken)
	envString("DATABASE_URL", &c.DatabaseURL)
	envString("MODEL_PATH", &c.ModelPath)
	envString("LABELS_PATH", &c.LabelsPath)
	envString("ANOMALY_DIR", &c.AnomalyDir)
	envString("TIMEZONE", &c.Timezone)
	envString("TEMP_DIR", &c.TempDir)
	envString("LOG_FILE", &c.LogFile)
	envString("LOG_LEVEL", &c.LogLevel)
	envString("JOURNAL_FILE", &c.JournalFile)
	envString("TRACE_FILE", &c.TraceFile)
	envString("METRICS_ADDR", &c.MetricsAddr)
	envString("MQTT_BROKER", &c.MQTTBroker)
	envString("MQTT_TOPIC", &c.MQTTTopic)
	envString("MQTT_CLIENT_ID", &c.MQTTClientID)
	envString("ADMIN_USERNAME", &c.AdminUsername)
	envString("ADMIN_PASSWORD", &c.AdminPassword)

	return errors.Join(
		envInt("MODEL_INPUT_SIZE", &c.ModelInputSize),
		envFloat("MODEL_MIN_CONFIDENCE", &c.ModelMinConfidence),
		envFloat("NMS_THRESHOLD", &c.NMSThreshold),
		envInt("DEFAULT_CONFIDENCE", &c.DefaultConfidence),
		envBool("RECORD_ANOMALIES", &c.RecordAnomalies),
		envDuration("PROGRESS_INTERVAL", &c.ProgressInterval),
	)
}

// Validate проверяет значения и возвращает все найденные ошибки
func (c *Config) Validate() error {
	var errs []error

	if c.ModelInputSize <= 0 || c.ModelInputSize%32 != 0 {
		errs = append(errs, fmt.Errorf("MODEL_INPUT_SIZE must be a positive multiple of 32, got %d", c.ModelInputSize))
	}
	if c.ModelMinConfidence <= 0 || c.ModelMinConfidence > 1 {
		errs = append(errs, fmt.Errorf("MODEL_MIN_CONFIDENCE must be in (0, 1], got %g", c.ModelMinConfidence))
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		errs = append(errs, fmt.Errorf("NMS_THRESHOLD must be in (0, 1], got %g", c.NMSThreshold))
	}
	if c.DefaultConfidence < 0 || c.DefaultConfidence > 100 || c.DefaultConfidence%10 != 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_CONFIDENCE must be 0..100 in steps of 10, got %d", c.DefaultConfidence))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if c.ProgressInterval <= 0 {
		errs = append(errs, fmt.Errorf("PROGRESS_INTERVAL must be positive, got %s", c.ProgressInterval))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if c.RecordAnomalies && c.AnomalyDir == "" {
		errs = append(errs, errors.New("ANOMALY_DIR is required when RECORD_ANOMALIES is set"))
	}
	if c.AdminUsername != "" && len(c.AdminPassword) < 8 {
		errs = append(errs, errors.New("ADMIN_PASSWORD must be at least 8 characters"))
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		errs = append(errs, errors.New("MQTT_TOPIC is required when MQTT_BROKER is set"))
	}

	return errors.Join(errs...)
}

// Location возвращает часовой пояс разметки аномалий
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
