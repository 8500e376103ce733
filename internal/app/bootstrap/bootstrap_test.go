package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	appconfig "github.com/wolfman30/medspa-booking-assistant/internal/config"
	"github.com/wolfman30/medspa-booking-assistant/internal/session"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

func TestBuildSessionKVRequiresConfig(t *testing.T) {
	if _, _, err := BuildSessionKV(context.Background(), nil, logging.New("error")); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildSessionKVSelectsBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  *appconfig.Config
		want any
	}{
		{"file", &appconfig.Config{SessionBackend: "file", StatePath: filepath.Join(t.TempDir(), "s.json")}, &session.FileKV{}},
		{"default", &appconfig.Config{StatePath: filepath.Join(t.TempDir(), "s.json")}, &session.FileKV{}},
		{"memory", &appconfig.Config{SessionBackend: "memory"}, &session.MemoryKV{}},
		{"redis", &appconfig.Config{SessionBackend: "redis", RedisAddr: mr.Addr()}, &session.RedisKV{}},
		{"redis down", &appconfig.Config{SessionBackend: "redis", RedisAddr: "127.0.0.1:1", StatePath: filepath.Join(t.TempDir(), "s.json")}, &session.FileKV{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, closer, err := BuildSessionKV(context.Background(), tt.cfg, logging.Discard())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer closer()
			if got, want := typeName(kv), typeName(tt.want); got != want {
				t.Fatalf("backend = %s, want %s", got, want)
			}
		})
	}
}

func TestBuildSessionKVUnknownBackend(t *testing.T) {
	cfg := &appconfig.Config{SessionBackend: "dynamo"}
	if _, _, err := BuildSessionKV(context.Background(), cfg, logging.Discard()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.Discard(), true); client != nil {
		t.Fatalf("expected nil client without an address")
	}
}

func TestBuildAssistantPersistsSessionInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{
		APIBaseURL:     "http://127.0.0.1:1/api",
		SessionBackend: "redis",
		RedisAddr:      mr.Addr(),
		StateKeyPrefix: "test",
		TurnPolicy:     "serialize",
	}

	rt, err := BuildAssistant(context.Background(), cfg, logging.Discard(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rt.Close()

	if rt.Metrics == nil {
		t.Fatalf("expected metrics when a registry is given")
	}
	id := rt.Sessions.Get(context.Background())
	if id == "" {
		t.Fatalf("expected a generated session id")
	}
	if got, err := mr.Get("test:session_id"); err != nil || got != id {
		t.Fatalf("redis session id = %q (%v), want %q", got, err, id)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *session.FileKV:
		return "file"
	case *session.MemoryKV:
		return "memory"
	case *session.RedisKV:
		return "redis"
	default:
		return "unknown"
	}
}
