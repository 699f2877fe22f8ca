package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mgale/stackup/internal/exec"
	"github.com/mgale/stackup/internal/flags"
)

// DockerConfig holds Docker CLI configuration.
type DockerConfig struct {
	// Binary is the runtime binary, default "docker".
	Binary string
	// ComposeArgs is the compose subcommand, default ["compose"]. Set to
	// nil and Binary to "docker-compose" for the standalone binary.
	ComposeArgs []string
	// UpFlags are user-configured extra flags appended to compose up.
	UpFlags flags.Flags
	// Output, when set, receives subprocess output as it is produced
	// (pull, build, compose up). When nil, output is captured and only
	// surfaces inside errors.
	Output io.Writer
}

// dockerEngine implements Engine over the Docker CLI.
type dockerEngine struct {
	exec        exec.Executor
	binary      string
	composeArgs []string
	upFlags     []string
	output      io.Writer
}

// NewDockerEngine creates an Engine backed by the docker CLI.
func NewDockerEngine(e exec.Executor, cfg DockerConfig) Engine {
	binary := cfg.Binary
	if binary == "" {
		binary = "docker"
	}
	composeArgs := cfg.ComposeArgs
	if composeArgs == nil && binary == "docker" {
		composeArgs = []string{"compose"}
	}
	return &dockerEngine{
		exec:        e,
		binary:      binary,
		composeArgs: composeArgs,
		upFlags:     flags.ToArgs(cfg.UpFlags),
		output:      cfg.Output,
	}
}

func (d *dockerEngine) PullImage(ctx context.Context, image string) error {
	res, err := d.run(ctx, true, "pull", image)
	if err != nil {
		return cliError("pull image "+image, res, err)
	}
	return nil
}

func (d *dockerEngine) BuildImage(ctx context.Context, cfg *BuildConfig) error {
	args := []string{"build", "-t", cfg.Tag}
	if cfg.Dockerfile != "" {
		args = append(args, "-f", cfg.Dockerfile)
	}
	args = append(args, cfg.Context)

	res, err := d.run(ctx, true, args...)
	if err != nil {
		return cliError("build image "+cfg.Tag, res, err)
	}
	return nil
}

func (d *dockerEngine) ComposeUp(ctx context.Context, file, project string) error {
	args := d.composeCmd(file, project)
	args = append(args, "up", "--detach")
	args = append(args, d.upFlags...)

	res, err := d.run(ctx, true, args...)
	if err != nil {
		return cliError("compose up "+file, res, err)
	}
	return nil
}

func (d *dockerEngine) ComposeStop(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]string{"stop"}, ids...)

	res, err := d.run(ctx, false, args...)
	if err != nil {
		return cliError("stop containers", res, err)
	}
	return nil
}

func (d *dockerEngine) ContainerIDs(ctx context.Context, file, project, service string) ([]string, error) {
	args := d.composeCmd(file, project)
	args = append(args, "ps", "-q", service)

	res, err := d.run(ctx, false, args...)
	if err != nil {
		return nil, cliError("list containers for "+service, res, err)
	}
	return splitLines(res.Stdout), nil
}

func (d *dockerEngine) RunningContainers(ctx context.Context) ([]string, error) {
	res, err := d.run(ctx, false, "ps", "-q", "--no-trunc")
	if err != nil {
		return nil, cliError("list running containers", res, err)
	}
	return splitLines(res.Stdout), nil
}

// composeCmd builds the compose invocation prefix for one file.
func (d *dockerEngine) composeCmd(file, project string) []string {
	args := append([]string{}, d.composeArgs...)
	args = append(args, "-f", file)
	if project != "" {
		args = append(args, "-p", project)
	}
	return args
}

// run invokes the runtime binary. Streaming commands write to the configured
// output as they go; quiet commands capture stdout for parsing.
func (d *dockerEngine) run(ctx context.Context, stream bool, args ...string) (*exec.Result, error) {
	opts := &exec.RunOptions{Name: d.binary, Args: args}
	if stream && d.output != nil {
		opts.Stdout = d.output
		opts.Stderr = d.output
	}
	return d.exec.Run(ctx, opts)
}

// cliError formats a runtime CLI failure, preferring captured stderr over
// the bare exit error.
func cliError(operation string, result *exec.Result, err error) error {
	if result != nil {
		if stderr := strings.TrimSpace(string(result.Stderr)); stderr != "" {
			return fmt.Errorf("%s: %s", operation, stderr)
		}
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func splitLines(out []byte) []string {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(trimmed, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
