package cmd

import (
	"context"

	"github.com/mgale/stackup/internal/config"
	"github.com/mgale/stackup/internal/launcher"
	"github.com/mgale/stackup/internal/spinner"
)

type contextKey string

const (
	configKey   contextKey = "config"
	loaderKey   contextKey = "loader"
	launcherKey contextKey = "launcher"
	spinnerKey  contextKey = "spinner"
)

// WithConfig adds the config to the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// ConfigFromContext retrieves the config from context.
func ConfigFromContext(ctx context.Context) *config.Config {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok {
		return nil
	}
	return cfg
}

// WithLoader adds the config loader to the context.
func WithLoader(ctx context.Context, loader *config.Loader) context.Context {
	return context.WithValue(ctx, loaderKey, loader)
}

// LoaderFromContext retrieves the config loader from context.
func LoaderFromContext(ctx context.Context) *config.Loader {
	loader, ok := ctx.Value(loaderKey).(*config.Loader)
	if !ok {
		return nil
	}
	return loader
}

// WithLauncher adds the launcher to the context.
func WithLauncher(ctx context.Context, l *launcher.Launcher) context.Context {
	return context.WithValue(ctx, launcherKey, l)
}

// LauncherFromContext retrieves the launcher from context.
func LauncherFromContext(ctx context.Context) *launcher.Launcher {
	l, ok := ctx.Value(launcherKey).(*launcher.Launcher)
	if !ok {
		return nil
	}
	return l
}

// WithSpinner adds the progress spinner to the context. A nil spinner is
// stored as absent.
func WithSpinner(ctx context.Context, s *spinner.Spinner) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, spinnerKey, s)
}

// SpinnerFromContext retrieves the progress spinner, or nil when output is
// not interactive.
func SpinnerFromContext(ctx context.Context) *spinner.Spinner {
	s, ok := ctx.Value(spinnerKey).(*spinner.Spinner)
	if !ok {
		return nil
	}
	return s
}
