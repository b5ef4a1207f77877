package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestInitAndGet(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestFieldsAndNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	log := Named("saver")
	log.Info(ctx, "snapshot written",
		String("session", "abc"),
		Int("attempt", 1),
		Bool("compact", false),
		Duration("took", 12*time.Millisecond),
	)

	out := buf.String()
	for _, want := range []string{"snapshot written", "logger=saver", "session=abc", "attempt=1", "compact=false"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf), WithJSON()); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Warn(context.Background(), "queue not empty", Int("depth", 3))
	out := buf.String()
	if !strings.Contains(out, `"depth":3`) {
		t.Errorf("expected JSON record, got: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Get().Debug(ctx, "hidden at info")
	if buf.Len() != 0 {
		t.Errorf("debug record emitted at info level: %s", buf.String())
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("failed to set level: %v", err)
	}
	Get().Debug(ctx, "visible at debug")
	if !strings.Contains(buf.String(), "visible at debug") {
		t.Error("debug record missing after lowering level")
	}
	if err := SetLevelString("info"); err != nil {
		t.Fatalf("failed to restore level: %v", err)
	}
}

func TestSetLevelString(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q rejected: %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := SetLevelString("info"); err != nil {
		t.Fatalf("failed to restore level: %v", err)
	}
}
