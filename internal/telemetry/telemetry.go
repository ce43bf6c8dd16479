// Package telemetry installs the OpenTelemetry tracer and meter providers
// used by the command line.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "deppy-fd"

// Config selects the exporters. A nil field disables its exporter.
type Config struct {
	Version string
	// Spans receives every span as pretty printed JSON once it ends.
	Spans io.Writer
	// Metrics receives the collected metrics as JSON on shutdown.
	Metrics io.Writer
	// Registerer exposes the metrics to prometheus.
	Registerer prometheus.Registerer
}

// Setup installs global tracer and meter providers for the exporters of cfg.
// The returned function flushes the exporters and puts the previous
// providers back; it must be called before exiting.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var errs []error
		for i := len(shutdownFuncs) - 1; i >= 0; i-- {
			errs = append(errs, shutdownFuncs[i](ctx))
		}
		return errors.Join(errs...)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", serviceName),
		attribute.String("service.version", cfg.Version),
	)

	if cfg.Spans != nil {
		tp, err := newTracerProvider(cfg.Spans, res)
		if err != nil {
			return nil, err
		}
		prev := otel.GetTracerProvider()
		otel.SetTracerProvider(tp)
		shutdownFuncs = append(shutdownFuncs, func(ctx context.Context) error {
			otel.SetTracerProvider(prev)
			if err := tp.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown tracer provider: %w", err)
			}
			return nil
		})
	}

	if cfg.Metrics != nil || cfg.Registerer != nil {
		mp, err := newMeterProvider(cfg, res)
		if err != nil {
			return nil, errors.Join(err, shutdown(ctx))
		}
		prev := otel.GetMeterProvider()
		otel.SetMeterProvider(mp)
		shutdownFuncs = append(shutdownFuncs, func(ctx context.Context) error {
			otel.SetMeterProvider(prev)
			if err := mp.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown meter provider: %w", err)
			}
			return nil
		})
	}

	return shutdown, nil
}

func newTracerProvider(w io.Writer, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		// Spans are written synchronously so that a short command line run
		// prints all of them.
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

func newMeterProvider(cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.Metrics != nil {
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.Metrics), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		// The reader exports once more when the provider shuts down, which
		// is the only export a short run sees.
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	}
	if cfg.Registerer != nil {
		exporter, err := promexporter.New(promexporter.WithRegisterer(cfg.Registerer))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exporter))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}
