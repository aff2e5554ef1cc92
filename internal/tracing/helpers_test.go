package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newSpanRecorder installs a recording tracer provider and restores the
// previous one when the test finishes.
func newSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder
}

func TestStartDBSpan(t *testing.T) {
	tests := []struct {
		name      string
		table     string
		operation DBOperation
		wantName  string
	}{
		{"query with table", "places", DBOperationQuery, "query places"},
		{"insert with table", "places", DBOperationInsert, "insert places"},
		{"update with table", "places", DBOperationUpdate, "update places"},
		{"delete with table", "places", DBOperationDelete, "delete places"},
		{"query without table", "", DBOperationQuery, "query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := newSpanRecorder(t)

			_, endSpan := StartDBSpan(context.Background(), tt.table, tt.operation)
			endSpan(nil)

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("got %d spans, want 1", len(spans))
			}
			span := spans[0]
			if span.Name() != tt.wantName {
				t.Errorf("span name = %q, want %q", span.Name(), tt.wantName)
			}

			attrs := make(map[attribute.Key]attribute.Value)
			for _, a := range span.Attributes() {
				attrs[a.Key] = a.Value
			}
			if got := attrs["db.system"].AsString(); got != "postgresql" {
				t.Errorf("db.system = %q", got)
			}
			if got := attrs["db.operation"].AsString(); got != string(tt.operation) {
				t.Errorf("db.operation = %q, want %q", got, tt.operation)
			}
			_, hasTable := attrs["db.sql.table"]
			if hasTable != (tt.table != "") {
				t.Errorf("db.sql.table present = %v, table = %q", hasTable, tt.table)
			}
		})
	}
}

func TestStartDBSpan_RecordsError(t *testing.T) {
	recorder := newSpanRecorder(t)
	dbErr := errors.New("connection reset")

	_, endSpan := StartDBSpan(context.Background(), "places", DBOperationUpdate)
	endSpan(dbErr)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	status := spans[0].Status()
	if status.Code.String() != "Error" {
		t.Errorf("status = %s, want Error", status.Code)
	}
	if status.Description != dbErr.Error() {
		t.Errorf("description = %q, want %q", status.Description, dbErr)
	}
}

func TestStartSpan(t *testing.T) {
	recorder := newSpanRecorder(t)

	_, endSpan := StartSpan(context.Background(), "oracle.validate")
	endSpan(nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name() != "oracle.validate" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if code := spans[0].Status().Code.String(); code != "Unset" && code != "Ok" {
		t.Errorf("status = %s", code)
	}
}

func TestStartSpan_RecordsError(t *testing.T) {
	recorder := newSpanRecorder(t)

	_, endSpan := StartSpan(context.Background(), "oracle.validate")
	endSpan(errors.New("verdict parse failure"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status().Code.String() != "Error" {
		t.Errorf("status = %s, want Error", spans[0].Status().Code)
	}
}

func TestAddEvent(t *testing.T) {
	recorder := newSpanRecorder(t)

	ctx, span := otel.Tracer("test").Start(context.Background(), "rank")
	AddEvent(ctx, "synonym_expansion", attribute.Int("variants", 3))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	events := spans[0].Events()
	if len(events) != 1 || events[0].Name != "synonym_expansion" {
		t.Fatalf("events = %+v", events)
	}
	if len(events[0].Attributes) != 1 {
		t.Errorf("event attributes = %+v", events[0].Attributes)
	}
}

func TestSetAttributes(t *testing.T) {
	recorder := newSpanRecorder(t)

	ctx, span := otel.Tracer("test").Start(context.Background(), "validate")
	SetAttributes(ctx, attribute.Bool("oracle.accepted", true))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	for _, a := range spans[0].Attributes() {
		if a.Key == "oracle.accepted" && a.Value.AsBool() {
			return
		}
	}
	t.Error("oracle.accepted attribute missing")
}
