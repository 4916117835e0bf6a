package logger

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"log/slog"
)

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	sink := newLineSink([]io.Writer{buf})
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   sink,
		format:   formatKV,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "wf")
	LogEvent(ctx, log, slog.LevelInfo, "session.created",
		slog.String("status", "ok"),
		slog.String("state", "selecting_document_type"),
	)
	if err := sink.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	tokens := strings.Split(line, " ")
	if len(tokens) < 6 {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	expected := []string{"ts=", "level=INFO", "component=wf", "event=session.created", "status=ok", "rid=rid-123"}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
	if !strings.Contains(line, "state=selecting_document_type") {
		t.Fatalf("state attr missing in %s", line)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	sink := newLineSink([]io.Writer{buf})
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   sink,
		format:   formatJSON,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	log := slog.New(handler).With("component", "gw")
	LogEvent(ctx, log, slog.LevelError, "recognize.fail",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.String("err_kind", "timeout"),
	)
	if err := sink.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"gw"`, `"event":"recognize.fail"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	buf := &bytes.Buffer{}
	sink := newLineSink([]io.Writer{buf})
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   sink,
		format:   formatKV,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	rawRID := "123:456:789"
	ctx := WithRID(Background(), rawRID)
	log := slog.New(handler).With("component", "tg")
	LogEvent(ctx, log, slog.LevelInfo, "rid.test",
		slog.String("status", "ok"),
	)
	if err := sink.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
}

func TestStructuredHandlerDurationNormalization(t *testing.T) {
	buf := &bytes.Buffer{}
	sink := newLineSink([]io.Writer{buf})
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   sink,
		format:   formatKV,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	log := slog.New(handler).With("component", "gw")
	LogEvent(Background(), log, slog.LevelInfo, "recognize.ok",
		slog.Duration("duration", 1500000000),
	)
	if err := sink.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "duration_ms=1500") {
		t.Fatalf("expected duration_ms=1500, got %s", line)
	}
}
