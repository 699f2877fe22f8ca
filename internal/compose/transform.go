package compose

import (
	"log/slog"

	"gopkg.in/yaml.v3"
)

// Default markers recognized inside image values. Both are stripped during
// resolution and never reach the launch step.
const (
	DefaultLocalBuildTag = "#local-build"
	DefaultSkipPullTag   = "#skip-pull"
)

// Options control one manifest transformation. All values arrive already
// resolved; the transformer reads no project settings itself.
type Options struct {
	// WorkDir is the current working context, preferred when qualifying
	// relative paths.
	WorkDir string
	// ComposeDir is the manifest's own directory, the fallback for
	// relative paths.
	ComposeDir string
	// LocalService names the project's own service; its image is retagged
	// with BuildVersion and classified as built unless NoBuild is set.
	LocalService string
	// BuildVersion is the resolved version tag for locally built images.
	BuildVersion string
	// LocalBuildTag overrides the local-build marker (DefaultLocalBuildTag).
	LocalBuildTag string
	// SkipPullTag overrides the skip-pull marker (DefaultSkipPullTag).
	SkipPullTag string
	// NoBuild disables local-service retagging.
	NoBuild bool
	// SkipPull classifies every otherwise-defined image as cached.
	SkipPull bool
	// StaticPorts pins dynamic host ports to their container ports.
	StaticPorts bool
}

func (o Options) localBuildTag() string {
	if o.LocalBuildTag != "" {
		return o.LocalBuildTag
	}
	return DefaultLocalBuildTag
}

func (o Options) skipPullTag() string {
	if o.SkipPullTag != "" {
		return o.SkipPullTag
	}
	return DefaultSkipPullTag
}

// Result is the manifest-level summary of one transformation.
type Result struct {
	// Services holds one entry per service, in document order.
	Services []ServiceInfo
	// Warnings are non-fatal findings, currently static-port fallbacks.
	Warnings []string
}

// Transformer rewrites compose documents in place.
type Transformer struct {
	log *slog.Logger
}

// NewTransformer creates a Transformer. A nil logger discards output.
func NewTransformer(log *slog.Logger) *Transformer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Transformer{log: log}
}

// Transform runs field validation, image resolution, path qualification, and
// port resolution over every service of the document. The document is
// mutated in place. Any validation failure aborts the whole call; a document
// from a failed call must not be launched.
func (t *Transformer) Transform(doc *Document, opts Options) (*Result, error) {
	services, err := doc.Services()
	if err != nil {
		return nil, err
	}

	alloc := newPortAllocator()
	result := &Result{}

	err = eachPair(services, func(name string, fields *yaml.Node) error {
		fm, err := asMapping(fields)
		if err != nil {
			return manifestErrorf(name, "", "%s", err)
		}
		if err := validateFields(name, fm); err != nil {
			return err
		}

		image, source, err := resolveImage(name, fm, opts)
		if err != nil {
			return err
		}
		if err := resolveEnvFiles(name, fm, opts); err != nil {
			return err
		}
		if err := resolveVolumes(name, fm, opts); err != nil {
			return err
		}

		ports, warnings, err := resolvePorts(name, fm, opts.StaticPorts, alloc)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			t.log.Warn(w)
		}
		result.Warnings = append(result.Warnings, warnings...)

		t.log.Debug("resolved service", "service", name, "image", image, "source", string(source))
		result.Services = append(result.Services, ServiceInfo{
			Name:   name,
			Image:  image,
			Source: source,
			Ports:  ports,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
