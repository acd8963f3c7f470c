package tracing

import (
	"context"
	"testing"
	"time"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{ServiceName: "test-service", Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if provider.IsEnabled() {
		t.Error("IsEnabled() = true, want false")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on no-op provider error = %v", err)
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing service name", Config{Enabled: true, SamplingRate: 0.1}},
		{"negative sampling rate", Config{ServiceName: "s", Enabled: true, SamplingRate: -0.1}},
		{"sampling rate above 1", Config{ServiceName: "s", Enabled: true, SamplingRate: 1.5}},
		{"unsupported exporter", Config{ServiceName: "s", Enabled: true, SamplingRate: 0.1, ExporterType: "jaeger"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProvider(tt.cfg); err == nil {
				t.Error("NewProvider() = nil error, want validation error")
			}
		})
	}
}

func TestNewProvider_ValidConfig(t *testing.T) {
	tests := []struct {
		name         string
		exporterType string
		samplingRate float64
	}{
		{"otlp-http with partial sampling", "otlp-http", 0.1},
		{"otlp-grpc with full sampling", "otlp-grpc", 1.0},
		{"default exporter with no sampling", "", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(Config{
				ServiceName:  "test-service",
				Enabled:      true,
				Environment:  "test",
				ExporterType: tt.exporterType,
				OTLPEndpoint: "localhost:4318",
				SamplingRate: tt.samplingRate,
				InsecureMode: true,
			})
			if err != nil {
				t.Fatalf("NewProvider() error = %v", err)
			}
			if !provider.IsEnabled() {
				t.Error("IsEnabled() = false, want true")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(ctx); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestStartDBSpan(t *testing.T) {
	ctx, endSpan := StartDBSpan(context.Background(), "predictions", DBOperationInsert)
	if ctx == nil {
		t.Fatal("StartDBSpan() returned nil context")
	}
	endSpan(nil)

	_, endSpan = StartDBSpan(context.Background(), "payments", DBOperationQuery)
	endSpan(context.DeadlineExceeded)
}

func TestStartSpan(t *testing.T) {
	ctx, endSpan := StartSpan(context.Background(), "classify")
	if ctx == nil {
		t.Fatal("StartSpan() returned nil context")
	}
	endSpan(nil)
}
