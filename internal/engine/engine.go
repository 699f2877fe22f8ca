// Package engine is the process interface to docker and docker compose. It
// issues opaque CLI calls and reports their outcome; it implements no
// container semantics of its own.
package engine

import (
	"context"
)

// BuildConfig configures a local image build.
type BuildConfig struct {
	Context    string // build context directory (required)
	Dockerfile string // path to the Dockerfile, relative to the context
	Tag        string // image tag to apply (required)
}

// Engine drives image and compose operations through an external runtime.
type Engine interface {
	// PullImage pulls an image from its registry.
	PullImage(ctx context.Context, image string) error

	// BuildImage builds a local image from a Dockerfile.
	BuildImage(ctx context.Context, cfg *BuildConfig) error

	// ComposeUp launches every service of a compose file detached,
	// optionally under an explicit project name.
	ComposeUp(ctx context.Context, file, project string) error

	// ComposeStop stops the containers with the given identifiers.
	ComposeStop(ctx context.Context, ids []string) error

	// ContainerIDs returns the container identifiers of one service of a
	// launched compose file.
	ContainerIDs(ctx context.Context, file, project, service string) ([]string, error)

	// RunningContainers returns the identifiers of every container the
	// runtime currently reports as running.
	RunningContainers(ctx context.Context) ([]string, error)
}
