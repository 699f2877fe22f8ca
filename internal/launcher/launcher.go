// Package launcher orchestrates manifest transformation, image preparation,
// service launch, and instance bookkeeping.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mgale/stackup/internal/compose"
	"github.com/mgale/stackup/internal/engine"
	"github.com/mgale/stackup/internal/names"
	"github.com/mgale/stackup/internal/registry"
	"github.com/mgale/stackup/internal/state"
)

// ErrNoInstances is returned when a stop finds nothing to stop.
var ErrNoInstances = errors.New("no running instances recorded")

// composeEngine is the internal interface for runtime operations.
type composeEngine interface {
	PullImage(ctx context.Context, image string) error
	BuildImage(ctx context.Context, cfg *engine.BuildConfig) error
	ComposeUp(ctx context.Context, file, project string) error
	ComposeStop(ctx context.Context, ids []string) error
	ContainerIDs(ctx context.Context, file, project, service string) ([]string, error)
	RunningContainers(ctx context.Context) ([]string, error)
}

// instanceStore is the internal interface for instance persistence.
type instanceStore interface {
	Load() error
	Save() error
	Record(inst state.Instance)
	Remove(ids ...string)
	Instances() []state.Instance
	InstanceIDsForService(service string) []string
	AllInstanceIDs() []string
	MatchingInstance(candidates []string) (*state.Instance, bool)
}

// metadataClient is the internal interface for registry pre-checks.
type metadataClient interface {
	GetMetadata(ctx context.Context, ref string) (*registry.ImageMetadata, error)
}

// Launcher drives one manifest from raw text to running, tracked instances.
type Launcher struct {
	engine   composeEngine
	store    instanceStore
	registry metadataClient // nil disables pre-checks
	log      *slog.Logger
}

// New creates a Launcher. The registry client may be nil; a nil logger
// discards output.
func New(eng composeEngine, store instanceStore, reg metadataClient, log *slog.Logger) *Launcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Launcher{engine: eng, store: store, registry: reg, log: log}
}

// UpOptions configure one launch.
type UpOptions struct {
	compose.Options

	// Vars are applied to the raw manifest text before parsing.
	Vars []compose.Variable

	// Project is the compose project name; generated when empty.
	Project string

	// BuildContext, when set, triggers a local image build for the
	// project's own service before launch.
	BuildContext string
	// Dockerfile is the Dockerfile path relative to BuildContext.
	Dockerfile string
}

// UpResult summarizes one launch.
type UpResult struct {
	Services    []compose.ServiceInfo
	Warnings    []string
	LaunchFile  string
	Project     string
	InstanceIDs []string
}

// Up reads and transforms a manifest, prepares every image, launches the
// services, and records the started instances. Transformation failures abort
// before anything external happens.
func (l *Launcher) Up(ctx context.Context, manifestPath string, opts UpOptions) (*UpResult, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	text := compose.Substitute(string(data), opts.Vars)
	doc, err := compose.Parse([]byte(text))
	if err != nil {
		return nil, err
	}

	if opts.ComposeDir == "" {
		abs, err := filepath.Abs(manifestPath)
		if err != nil {
			return nil, fmt.Errorf("resolve manifest path: %w", err)
		}
		opts.ComposeDir = filepath.Dir(abs)
	}
	if opts.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		opts.WorkDir = wd
	}

	result, err := compose.NewTransformer(l.log).Transform(doc, opts.Options)
	if err != nil {
		return nil, err
	}

	if err := l.prepareImages(ctx, result.Services, opts); err != nil {
		return nil, err
	}

	launchFile := launchPath(manifestPath, opts.ComposeDir)
	if err := doc.Write(launchFile); err != nil {
		return nil, err
	}

	project := opts.Project
	if project == "" {
		project = names.Generate()
	}

	l.log.Info("launching services", "file", launchFile, "project", project)
	if err := l.engine.ComposeUp(ctx, launchFile, project); err != nil {
		return nil, err
	}

	up := &UpResult{
		Services:   result.Services,
		Warnings:   result.Warnings,
		LaunchFile: launchFile,
		Project:    project,
	}

	_ = l.store.Load() //nolint:errcheck // best-effort: corrupt prior state must not block a launch
	for _, svc := range result.Services {
		ids, err := l.engine.ContainerIDs(ctx, launchFile, project, svc.Name)
		if err != nil {
			l.log.Warn("could not resolve containers", "service", svc.Name, "error", err)
			continue
		}
		if len(ids) == 0 {
			l.log.Warn("no containers reported for service", "service", svc.Name)
			continue
		}
		for _, id := range ids {
			l.store.Record(state.Instance{
				ID:          id,
				Service:     svc.Name,
				ComposeFile: launchFile,
				Project:     project,
				Ports:       toStatePorts(svc.Ports),
			})
			up.InstanceIDs = append(up.InstanceIDs, id)
		}
	}
	_ = l.store.Save() //nolint:errcheck // best-effort persistence by contract

	return up, nil
}

// prepareImages pulls, builds, or skips each service's image according to
// its classification.
func (l *Launcher) prepareImages(ctx context.Context, services []compose.ServiceInfo, opts UpOptions) error {
	for _, svc := range services {
		switch svc.Source {
		case compose.SourceBuild:
			if svc.Name == opts.LocalService && opts.BuildContext != "" {
				l.log.Info("building image", "image", svc.Image, "context", opts.BuildContext)
				if err := l.engine.BuildImage(ctx, &engine.BuildConfig{
					Context:    opts.BuildContext,
					Dockerfile: opts.Dockerfile,
					Tag:        svc.Image,
				}); err != nil {
					return err
				}
				continue
			}
			l.log.Info("using locally built image", "image", svc.Image, "service", svc.Name)
		case compose.SourceCache:
			l.log.Info("skipping pull for cached image", "image", svc.Image, "service", svc.Name)
		case compose.SourceDefined:
			l.checkImage(ctx, svc.Image)
			l.log.Info("pulling image", "image", svc.Image, "service", svc.Name)
			if err := l.engine.PullImage(ctx, svc.Image); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkImage logs registry metadata for an image before pulling. Failures
// are advisory only; the pull itself decides.
func (l *Launcher) checkImage(ctx context.Context, image string) {
	if l.registry == nil || image == "" {
		return
	}
	md, err := l.registry.GetMetadata(ctx, image)
	if err != nil {
		l.log.Debug("registry pre-check failed", "image", image, "error", err)
		return
	}
	l.log.Debug("resolved image in registry", "image", image, "digest", md.Digest)
}

// Stop stops the tracked instances of one service, or all of them when
// service is empty, and drops them from the store. Returns the stopped
// identifiers.
func (l *Launcher) Stop(ctx context.Context, service string) ([]string, error) {
	_ = l.store.Load() //nolint:errcheck // best-effort: unreadable state means nothing to stop

	var ids []string
	if service == "" {
		ids = l.store.AllInstanceIDs()
	} else {
		ids = l.store.InstanceIDsForService(service)
	}
	if len(ids) == 0 {
		return nil, ErrNoInstances
	}

	if err := l.engine.ComposeStop(ctx, ids); err != nil {
		return nil, err
	}

	l.store.Remove(ids...)
	_ = l.store.Save() //nolint:errcheck // best-effort persistence by contract
	return ids, nil
}

// InstanceStatus pairs a stored instance with its live runtime state.
type InstanceStatus struct {
	state.Instance
	Live bool
}

// Status returns every tracked instance annotated with whether the runtime
// still reports it running, plus the first tracked instance that is live.
func (l *Launcher) Status(ctx context.Context) ([]InstanceStatus, *state.Instance, error) {
	_ = l.store.Load() //nolint:errcheck // best-effort: unreadable state reads as empty

	running, err := l.engine.RunningContainers(ctx)
	if err != nil {
		return nil, nil, err
	}
	live := make(map[string]bool, len(running))
	for _, id := range running {
		live[id] = true
	}

	instances := l.store.Instances()
	statuses := make([]InstanceStatus, 0, len(instances))
	for _, inst := range instances {
		statuses = append(statuses, InstanceStatus{Instance: inst, Live: live[inst.ID]})
	}

	active, _ := l.store.MatchingInstance(running)
	return statuses, active, nil
}

// TrackedServices returns the distinct service names with recorded
// instances, in record order.
func (l *Launcher) TrackedServices() []string {
	_ = l.store.Load() //nolint:errcheck // best-effort: unreadable state reads as empty

	seen := make(map[string]bool)
	var services []string
	for _, inst := range l.store.Instances() {
		if !seen[inst.Service] {
			seen[inst.Service] = true
			services = append(services, inst.Service)
		}
	}
	return services
}

// launchPath places the rewritten manifest next to the original, prefixed so
// repeated launches overwrite their own output and never the source.
func launchPath(manifestPath, composeDir string) string {
	return filepath.Join(composeDir, ".stackup-"+filepath.Base(manifestPath))
}

func toStatePorts(ports []compose.PortInfo) []state.Port {
	if len(ports) == 0 {
		return nil
	}
	out := make([]state.Port, len(ports))
	for i, p := range ports {
		out[i] = state.Port{Host: p.HostPort, Container: p.ContainerPort, Debug: p.Debug}
	}
	return out
}
