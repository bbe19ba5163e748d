package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Brownie44l1/imgclass-api/internal/config"
	"github.com/Brownie44l1/imgclass-api/internal/fetch"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestOptionsGraphIsComplete(t *testing.T) {
	t.Setenv("IMGCLASS_CONFIG", "")
	if err := fx.ValidateApp(Options()); err != nil {
		t.Fatalf("application graph is invalid: %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	logger := newLogger(&buf, cfg)
	logger.Info("dropped")
	logger.Warn("kept", "source", "mug.png")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %q", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if record["msg"] != "kept" || record["source"] != "mug.png" {
		t.Errorf("unexpected record %v", record)
	}
}

func TestNewEchoServer_BodyLimit(t *testing.T) {
	cfg := config.Default()
	cfg.MaxUploadBytes = 1024
	e := NewEchoServer(cfg)
	e.POST("/echo", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	small := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("ok"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, small)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	big := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(make([]byte, 1024+bodySlack+1)))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestProvideURLCache_Memory(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cache := ProvideURLCache(lc, config.Default(), slog.Default())
	if _, ok := cache.(*fetch.MemoryCache); !ok {
		t.Errorf("expected memory cache, got %T", cache)
	}
}

func TestProvideURLCache_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.CacheBackend = config.CacheBackendRedis
	cfg.RedisAddr = mr.Addr()

	lc := fxtest.NewLifecycle(t)
	cache := ProvideURLCache(lc, cfg, slog.Default())
	lc.RequireStart()
	defer lc.RequireStop()

	if _, ok := cache.(*fetch.RedisCache); !ok {
		t.Fatalf("expected redis cache, got %T", cache)
	}

	ctx := context.Background()
	img := &fetch.Image{Data: []byte{1, 2, 3}, Source: "http://example.com/a.png"}
	if err := cache.Set(ctx, img.Source, img); err != nil {
		t.Fatal(err)
	}
	got, ok, err := cache.Get(ctx, img.Source)
	if err != nil || !ok || !bytes.Equal(got.Data, img.Data) {
		t.Errorf("expected cached image back, got %v %v %v", got, ok, err)
	}
}

func TestProvideURLCache_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.CacheBackend = config.CacheBackendRedis
	cfg.RedisAddr = "127.0.0.1:1"

	lc := fxtest.NewLifecycle(t)
	ProvideURLCache(lc, cfg, slog.Default())
	if err := lc.Start(context.Background()); err == nil {
		t.Error("expected start to fail without redis")
	}
}
