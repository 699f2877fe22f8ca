package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mgale/stackup/internal/compose"
	"github.com/mgale/stackup/internal/launcher"
)

func requireLauncher(ctx context.Context) (*launcher.Launcher, error) {
	l := LauncherFromContext(ctx)
	if l == nil {
		return nil, errors.New("launcher not initialized")
	}
	return l, nil
}

// parseVars converts repeated KEY=VALUE flags into substitution variables.
func parseVars(pairs []string) ([]compose.Variable, error) {
	vars := make([]compose.Variable, 0, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q (expected KEY=VALUE)", pair)
		}
		vars = append(vars, compose.Variable{Name: name, Value: value})
	}
	return vars, nil
}
