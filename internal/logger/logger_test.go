package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}
	return entry
}

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Warn("source failed",
		slog.String("run_id", "2f1c"),
		slog.String("source", "blog_posts"),
		slog.String("url", "https://blog.example/feed.xml"),
		slog.Int("http_status", 503),
	)

	entry := decode(t, &buf)
	if entry["msg"] != "source failed" || entry["level"] != "WARN" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in JSON log output")
	}
	if entry["source"] != "blog_posts" || entry["http_status"].(float64) != 503 {
		t.Errorf("attributes not preserved: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		" info ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupWithLevel_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWithLevel(&buf, slog.LevelWarn)

	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("Warn未満は出力しない: %s", buf.String())
	}

	l.Error("shown")
	if !strings.Contains(buf.String(), `"shown"`) {
		t.Errorf("Errorは出力されるべき: %s", buf.String())
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })

	var buf bytes.Buffer
	l := SetupDefault(&buf, "debug")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	slog.Debug("global debug")
	if entry := decode(t, &buf); entry["msg"] != "global debug" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global debug")
	}
}
