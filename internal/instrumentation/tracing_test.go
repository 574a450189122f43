package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartGoogleAPISpan(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartGoogleAPISpan(context.Background(), ServiceSheets, OperationUpdate)
	if GetTraceID(ctx) == "" {
		t.Error("expected a trace id in the span context")
	}
	SetSpanError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	s := ended[0]
	if s.Name() != "google.sheets.batch_update" {
		t.Errorf("Name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("SpanKind = %v, want client", s.SpanKind())
	}
	if s.Status().Code != codes.Error {
		t.Errorf("Status = %v, want error", s.Status().Code)
	}
}

func TestStartToolSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartToolSpan(context.Background(), "gmail_send_message")
	SetSpanSuccess(span)
	span.End()

	s := recorder.Ended()[0]
	if s.Name() != "tool.gmail_send_message" {
		t.Errorf("Name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindServer {
		t.Errorf("SpanKind = %v, want server", s.SpanKind())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("Status = %v, want ok", s.Status().Code)
	}
	found := false
	for _, a := range s.Attributes() {
		if string(a.Key) == SpanAttrTool && a.Value.AsString() == "gmail_send_message" {
			found = true
		}
	}
	if !found {
		t.Error("expected the tool attribute on the span")
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartGoogleAPISpan(context.Background(), ServiceGmail, OperationSend)
	SetSpanError(span, nil)
	span.End()

	if got := recorder.Ended()[0].Status().Code; got != codes.Unset {
		t.Errorf("Status = %v, want unset", got)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
}
