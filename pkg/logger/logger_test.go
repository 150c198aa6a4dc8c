package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	ctx := context.Background()
	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug entry written at info level: %q", buf.String())
	}

	if err := SetLevelString("DEBUG"); err != nil {
		t.Fatalf("failed to set level: %v", err)
	}
	Named("features").Debug(ctx, "shown", Duration("took", 0))
	out := buf.String()
	if !strings.Contains(out, "features.took=0s") {
		t.Errorf("expected grouped duration field in %q", out)
	}
	if !strings.Contains(out, "logger_test.go:") {
		t.Errorf("expected the call site in %q", out)
	}

	SetLevel(slog.LevelWarn)
	buf.Reset()
	Get().Info(ctx, "hidden again")
	if buf.Len() != 0 {
		t.Errorf("info entry written at warn level: %q", buf.String())
	}
}

func TestLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat("json"), WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}
	Get().Named("pipeline").Info(context.Background(), "predicted", Int("rank", 120))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "predicted" {
		t.Errorf("unexpected msg: %v", line["msg"])
	}
	if _, ok := line["pipeline"]; !ok {
		t.Errorf("expected the pipeline group in %v", line)
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Error("expected an error for an unknown format")
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected an error for an unknown level")
	}
	if err := Init(); err != nil {
		t.Fatalf("failed to reinitialize logger: %v", err)
	}
}
