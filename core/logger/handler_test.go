package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	return newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	}), aw
}

func flushLine(t *testing.T, aw *asyncWriter, buf *bytes.Buffer) string {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "intake.engine")
	LogEvent(ctx, log, slog.LevelInfo, "transition",
		slog.String("status", "ok"),
		slog.String("step", "building.details"),
	)

	tokens := strings.Split(flushLine(t, aw, buf), " ")
	expected := []string{"ts=", "level=INFO", "component=intake.engine", "event=transition", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "step=building.details"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%v)", len(tokens), tokens)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	log := slog.New(handler).With("component", "intake.submit")
	LogEvent(ctx, log, slog.LevelError, "dispatch.fail",
		slog.String("status", "FAIL"),
		slog.Any("err", errors.New("boom")),
	)

	line := flushLine(t, aw, buf)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"intake.submit"`, `"event":"dispatch.fail"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`}
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
	rawRID := "123:-456:789"
	for _, tc := range []struct {
		format   logFormat
		compact  string
		wantFull bool
	}{
		{formatKV, "rid=" + CompactRID(rawRID), false},
		{formatJSON, `"rid":"` + CompactRID(rawRID) + `"`, true},
	} {
		buf := &bytes.Buffer{}
		handler, aw := newTestHandler(buf, tc.format)
		LogEvent(WithRID(context.Background(), rawRID), slog.New(handler), slog.LevelInfo, "rid.test")
		line := flushLine(t, aw, buf)
		if !strings.Contains(line, tc.compact) {
			t.Fatalf("%s: expected compact rid, got %s", tc.format, line)
		}
		if got := strings.Contains(line, "rid_full"); got != tc.wantFull {
			t.Fatalf("%s: rid_full present = %v, want %v (%s)", tc.format, got, tc.wantFull, line)
		}
	}
}

func TestStructuredHandlerDurationAndDefaults(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	slog.New(handler).LogAttrs(context.Background(), slog.LevelInfo, "dispatched",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.String("outcome", "nonsense"),
		slog.String("empty", ""),
	)
	line := flushLine(t, aw, buf)
	for _, want := range []string{"component=app", "event=dispatched", "duration_ms=2"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %s", want, line)
		}
	}
	for _, absent := range []string{"outcome=", "empty="} {
		if strings.Contains(line, absent) {
			t.Fatalf("did not expect %q in %s", absent, line)
		}
	}
}

func TestStructuredHandlerLevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	slog.New(handler).Debug("hidden")
	if line := flushLine(t, aw, buf); line != "" {
		t.Fatalf("debug line leaked: %s", line)
	}
}

func TestCompactRIDPassthrough(t *testing.T) {
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID = %q", got)
	}
	if got := CompactRID(BuildRID(35, 36, 1)); got != "z.10.1" {
		t.Fatalf("CompactRID = %q, want z.10.1", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var allowed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want 3", allowed)
	}
	if n, d := parseRatioSpec("2/5"); n != 2 || d != 5 {
		t.Fatalf("parseRatioSpec(2/5) = %d/%d", n, d)
	}
	if n, d := parseRatioSpec("10"); n != 1 || d != 10 {
		t.Fatalf("parseRatioSpec(10) = %d/%d", n, d)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\nd", 4); got != "abc\n" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}
