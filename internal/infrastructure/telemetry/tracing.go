package telemetry

import (
	"context"
	"errors"
	"io"

	"github.com/natefinch/lumberjack"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

// Tracing провайдер трассировки с экспортом спанов JSON-строками
type Tracing struct {
	provider *sdktrace.TracerProvider
	out      io.Closer
}

// SetupTracing пишет спаны в файл path с ротацией и регистрирует
// провайдер глобально; трассировщики otel.Tracer начинают работать
// через него.
func SetupTracing(path, service string) (*Tracing, error) {
	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     7, // days
		Compress:   true,
	}

	t, err := newTracing(rotated, rotated, service)
	if err != nil {
		rotated.Close()
		return nil, err
	}

	otel.SetTracerProvider(t.provider)
	return t, nil
}

func newTracing(w io.Writer, out io.Closer, service string) (*Tracing, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, xerrors.Errorf("create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
	)
	return &Tracing{provider: provider, out: out}, nil
}

// Tracer возвращает именованный трассировщик провайдера
func (t *Tracing) Tracer(name string) trace.Tracer {
	return t.provider.Tracer(name)
}

// Shutdown выгружает оставшиеся спаны и закрывает файл
func (t *Tracing) Shutdown(ctx context.Context) error {
	err := t.provider.Shutdown(ctx)
	if t.out != nil {
		err = errors.Join(err, t.out.Close())
	}
	return err
}
