package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// capture logs one event through a fresh handler and returns the line.
func capture(ctx context.Context, t *testing.T, format logFormat, component, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	log := slog.New(handler).With("component", component)
	LogEvent(ctx, log, slog.LevelInfo, event, attrs...)
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	return line
}

func assertOrder(t *testing.T, line string, parts ...string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		if idx == -1 || idx < pos {
			t.Fatalf("%q missing or out of order in %s", p, line)
		}
		pos = idx
	}
}

func TestKVLineCarriesDialogueContext(t *testing.T) {
	ctx := WithRID(Background(), "rid-kv")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)
	ctx = WithState(ctx, "awaiting_amount")

	line := capture(ctx, t, formatKV, "dialogue", "dialogue.step",
		slog.String("intent", "text"),
		slog.String("next_state", "awaiting_date"),
		slog.String("status", "OK"),
	)
	assertOrder(t, line,
		"ts=", "level=INFO", "component=dialogue", "event=dialogue.step", "status=ok",
		"rid=rid-kv", "update_id=42", "user_id=7", "chat_id=9",
		"state=awaiting_amount", "next_state=awaiting_date", "intent=text",
	)
}

func TestExplicitStateWinsOverContext(t *testing.T) {
	ctx := WithState(Background(), "idle")
	line := capture(ctx, t, formatKV, "dialogue", "x", slog.String("state", "awaiting_date"))
	if !strings.Contains(line, "state=awaiting_date") || strings.Contains(line, "state=idle") {
		t.Fatalf("unexpected state in %s", line)
	}
}

func TestJSONLineIsOrderedAndValid(t *testing.T) {
	ctx := WithRID(Background(), "rid-json")
	line := capture(ctx, t, formatJSON, "records", "record.update",
		slog.String("status", "error"),
		slog.Int64("record_id", 12),
		slog.Duration("duration", 1500*time.Microsecond),
		slog.String("err_code", "STORE_UNAVAILABLE"),
	)
	assertOrder(t, line, `{"ts":`, `"level":"INFO"`, `"component":"records"`,
		`"event":"record.update"`, `"status":"fail"`, `"rid":"rid-json"`,
		`"duration_ms":2`, `"record_id":12`, `"err_code":"STORE_UNAVAILABLE"`)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("invalid JSON %s: %v", line, err)
	}
	if _, ok := decoded["ts_unix_nano"]; !ok {
		t.Fatalf("ts_unix_nano missing in %s", line)
	}
}

func TestCompactRID(t *testing.T) {
	raw := BuildRID(123, 456, 789)
	kv := capture(WithRID(Background(), raw), t, formatKV, "app", "rid.test")
	if !strings.Contains(kv, "rid="+CompactRID(raw)) || strings.Contains(kv, "rid_full=") {
		t.Fatalf("unexpected KV rid in %s", kv)
	}
	js := capture(WithRID(Background(), raw), t, formatJSON, "app", "rid.test")
	if !strings.Contains(js, `"rid":"`+CompactRID(raw)+`"`) || !strings.Contains(js, `"rid_full":"`+raw+`"`) {
		t.Fatalf("unexpected JSON rid in %s", js)
	}

	cases := map[string]string{
		"123:456:789": "3f.co.lx",
		"1:-100:2":    "1.-2s.2",
		"not-a-rid":   "not-a-rid",
		"1:x:2":       "1:x:2",
		"":            "",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Errorf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\td", 10); got != "abc\td" {
		t.Fatalf("sanitized = %q", got)
	}
	if got := SanitizeLimit("Привет, мир", 6); got != "Привет" {
		t.Fatalf("limited = %q", got)
	}
	if got := SanitizeLimit("x", 0); got != "" {
		t.Fatalf("zero limit = %q", got)
	}
}

func TestEmptyValuesArePruned(t *testing.T) {
	line := capture(context.Background(), t, formatKV, "app", "prune",
		slog.String("payload", "  "),
		slog.String("mode", "memory"),
	)
	if strings.Contains(line, "payload=") {
		t.Fatalf("empty payload kept in %s", line)
	}
	if !strings.Contains(line, "mode=memory") {
		t.Fatalf("mode missing in %s", line)
	}
}
