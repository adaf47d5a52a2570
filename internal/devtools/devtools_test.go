// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package devtools

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestStartTracingDisabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	prev := otel.GetTracerProvider()

	stop, err := StartTracing(context.Background(), "webfront-build")
	if err != nil {
		t.Fatal(err)
	}
	stop()
	if otel.GetTracerProvider() != prev {
		t.Fatal("tracer provider was replaced without an endpoint")
	}
}

func TestStartTracing(t *testing.T) {
	// A non-routable address, so nothing is exported.
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://192.0.2.1:4318")
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	stop, err := StartTracing(context.Background(), "webfront-build")
	if err != nil {
		t.Fatal(err)
	}
	defer stop()
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("want *sdktrace.TracerProvider, got %T", otel.GetTracerProvider())
	}
}
