package ioc

import (
	"github.com/gotomicro/ego/core/econf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func InitZipkinTracer() *sdktrace.TracerProvider {
	type Config struct {
		Endpoint string
	}
	var cfg Config
	if err := econf.UnmarshalKey("zipkin", &cfg); err != nil {
		panic(err)
	}

	exporter, err := zipkin.New(cfg.Endpoint)
	if err != nil {
		panic(err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("courier-platform"),
			attribute.String("env", econf.GetString("app.env")),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp
}
