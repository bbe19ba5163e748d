package bootstrap

import (
	"io"
	"log/slog"
	"os"

	"github.com/Brownie44l1/imgclass-api/internal/config"
	"go.uber.org/fx/fxevent"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ProvideLogger(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

// fxLogger routes fx lifecycle events through the application logger at
// debug level.
func fxLogger(logger *slog.Logger) fxevent.Logger {
	l := &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
	l.UseLogLevel(slog.LevelDebug)
	return l
}
