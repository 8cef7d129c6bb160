package notify_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mobby57/memoLib-sub019/pkg/notify"
)

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_REDIS_URL", "redis://localhost:6379/0")

	cfg := notify.Config{}
	if err := cfg.Finalize(&notify.Env{RedisURL: "TEST_REDIS_URL"}); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("redis_url = %q", cfg.RedisURL)
	}
	if cfg.Channel != "memolib:transitions" {
		t.Errorf("channel = %q, want memolib:transitions", cfg.Channel)
	}
	if cfg.DialTimeoutDuration() != 5*time.Second {
		t.Errorf("dial_timeout = %v, want 5s", cfg.DialTimeoutDuration())
	}

	bad := notify.Config{DialTimeout: "soon"}
	if err := bad.Finalize(nil); err == nil {
		t.Error("expected invalid dial_timeout error")
	}
}

func TestNewSelectsNotifier(t *testing.T) {
	logger := slog.Default()

	sys, err := notify.New(&notify.Config{}, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := sys.(*notify.Log); !ok {
		t.Errorf("empty URL should select *notify.Log, got %T", sys)
	}

	sys, err = notify.New(&notify.Config{RedisURL: "redis://localhost:6379/0", Channel: "c", DialTimeout: "1s"}, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := sys.(*notify.Redis); !ok {
		t.Errorf("redis URL should select *notify.Redis, got %T", sys)
	}

	if _, err := notify.New(&notify.Config{RedisURL: "://bad"}, logger); err == nil {
		t.Error("expected parse error for bad URL")
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	err := n.Notify(context.Background(), notify.Transition{
		TenantID: "acme",
		UnitID:   "u1",
		Seq:      2,
		ToStatus: "CLASSIFIED",
		Actor:    "system",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"tenant_id=acme", "unit_id=u1", "to=CLASSIFIED"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}
