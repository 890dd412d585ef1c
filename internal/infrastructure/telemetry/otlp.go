package telemetry

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const providerShutdownTimeout = 10 * time.Second

// Collector addresses the OTLP gRPC endpoint shared by traces, metrics and
// logs.
type Collector struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// grpcOptions builds exporter options for any of the otlp*grpc packages.
func grpcOptions[O any](c Collector, endpoint func(string) O, insecure func() O) []O {
	opts := []O{endpoint(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, insecure())
	}
	return opts
}

func (c Collector) resource() (*resource.Resource, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(buildVersion()),
	))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}
	return res, nil
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// lifecycle is the shutdown half shared by the SDK provider wrappers. A zero
// value belongs to a disabled provider.
type lifecycle struct {
	kind   string
	logger *zap.Logger
	stop   func(context.Context) error
}

// IsEnabled reports whether an SDK provider was installed.
func (l *lifecycle) IsEnabled() bool { return l.stop != nil }

// Shutdown flushes buffered telemetry and stops the provider, giving up after
// providerShutdownTimeout.
func (l *lifecycle) Shutdown(ctx context.Context) error {
	if l.stop == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, providerShutdownTimeout)
	defer cancel()

	if err := l.stop(ctx); err != nil {
		return fmt.Errorf("shutdown %s provider: %w", l.kind, err)
	}
	l.logger.Debug("OpenTelemetry provider stopped", zap.String("signal", l.kind))
	return nil
}
