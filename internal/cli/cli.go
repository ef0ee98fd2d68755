// Package cli holds the start-up sequence shared by the litcast commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/joho/godotenv"

	"github.com/ahrav/litcast/internal/application"
)

// Session is the state every command starts from.
type Session struct {
	Env    application.Env
	Config application.RunConfig
}

// Start loads .env, reads the environment, installs the logger and loads
// the run config. configFlag wins over LITCAST_CONFIG. The returned context
// is canceled on SIGINT or SIGTERM.
func Start(configFlag string) (context.Context, context.CancelFunc, *Session, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// A missing .env is normal outside development.
	dotenvErr := godotenv.Load()

	env, err := application.LoadEnv(ctx)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	level, err := ParseLevel(env.LogLevel)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	if dotenvErr != nil {
		clog.FromContext(ctx).Debugf("no .env file loaded: %v", dotenvErr)
	}

	path := configFlag
	if path == "" {
		path = env.ConfigPath
	}
	cfg, err := application.LoadRunConfig(path)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	if path != "" {
		clog.FromContext(ctx).With("path", path).Info("loaded run config")
	}
	return ctx, cancel, &Session{Env: env, Config: cfg}, nil
}

// ParseLevel maps LOG_LEVEL values onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// SplitList splits a comma separated flag value, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
