package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ImageSource classifies how a service's image is obtained for one run.
type ImageSource string

const (
	// SourceBuild marks an image produced by the local build.
	SourceBuild ImageSource = "build"
	// SourceDefined marks an image taken from its registry definition.
	SourceDefined ImageSource = "defined"
	// SourceCache marks an image reused from the local cache without pulling.
	SourceCache ImageSource = "cache"
)

// ServiceInfo is the read-only summary of one service after transformation.
type ServiceInfo struct {
	Name   string
	Image  string
	Source ImageSource
	Ports  []PortInfo
}

// unsupportedFields are manifest keys this tool refuses to launch with.
// Their semantics conflict with deterministic image resolution.
var unsupportedFields = []string{"build", "container_name", "extends"}

// validateFields rejects services declaring unsupported fields. This is a
// hard fence: one bad service fails the whole transformation.
func validateFields(service string, fields *yaml.Node) error {
	for _, f := range unsupportedFields {
		if mapGet(fields, f) != nil {
			return manifestErrorf(service, f, "unsupported field")
		}
	}
	return nil
}

// resolveImage classifies the service's image and rewrites the image node in
// place. Classification order: the project's own service builds locally
// (unless no-build mode is on), then the local-build marker, then the
// skip-pull marker or flag, then registry-defined.
func resolveImage(service string, fields *yaml.Node, opts Options) (string, ImageSource, error) {
	node := mapGet(fields, "image")
	var image string
	if node != nil {
		s, err := asString(node)
		if err != nil {
			return "", "", manifestErrorf(service, "image", "%s", err)
		}
		image = s
	}

	var source ImageSource
	switch {
	case !opts.NoBuild && service == opts.LocalService:
		image = stripTag(image) + ":" + opts.BuildVersion
		source = SourceBuild
	case image != "" && strings.Contains(image, opts.localBuildTag()):
		image = strings.ReplaceAll(image, opts.localBuildTag(), "")
		source = SourceBuild
	case (image != "" && strings.Contains(image, opts.skipPullTag())) || opts.SkipPull:
		image = strings.ReplaceAll(image, opts.skipPullTag(), "")
		source = SourceCache
	default:
		source = SourceDefined
	}

	if node != nil {
		node.SetString(image)
	}
	return image, source, nil
}

// stripTag removes an explicit version tag from an image reference. The last
// colon only counts as a tag separator when it follows the last slash, so
// registry host:port prefixes survive.
func stripTag(image string) string {
	if i := strings.LastIndex(image, ":"); i > strings.LastIndex(image, "/") {
		return image[:i]
	}
	return image
}

// resolveEnvFiles qualifies env_file entries (a single string or a list) to
// absolute paths. Unresolvable entries are fatal.
func resolveEnvFiles(service string, fields *yaml.Node, opts Options) error {
	node := mapGet(fields, "env_file")
	if node == nil {
		return nil
	}
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.ScalarNode:
		return qualifyEnvFile(service, node, opts)
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if err := qualifyEnvFile(service, item, opts); err != nil {
				return err
			}
		}
		return nil
	default:
		return manifestErrorf(service, "env_file", "expected string or list, got %s", kindName(node.Kind))
	}
}

func qualifyEnvFile(service string, node *yaml.Node, opts Options) error {
	node = resolveAlias(node)
	p, err := asString(node)
	if err != nil {
		return manifestErrorf(service, "env_file", "%s", err)
	}
	resolved, err := resolveExistingPath(p, opts)
	if err != nil {
		return manifestErrorf(service, "env_file", "%s", err)
	}
	node.SetString(resolved)
	return nil
}

// resolveVolumes rewrites volume entries whose host side is a relative path
// starting with ".". Other entries (named volumes, absolute paths, long
// syntax mappings) pass through unchanged.
func resolveVolumes(service string, fields *yaml.Node, opts Options) error {
	node := mapGet(fields, "volumes")
	if node == nil {
		return nil
	}
	items, err := asSequence(node)
	if err != nil {
		return manifestErrorf(service, "volumes", "%s", err)
	}
	for _, item := range items {
		item = resolveAlias(item)
		if item.Kind != yaml.ScalarNode || !strings.HasPrefix(item.Value, ".") {
			continue
		}
		host, mount, ok := strings.Cut(item.Value, ":")
		if !ok {
			continue
		}
		resolved, err := resolveExistingPath(host, opts)
		if err != nil {
			return manifestErrorf(service, "volumes", "%s", err)
		}
		item.SetString(resolved + ":" + mount)
	}
	return nil
}

// resolveExistingPath turns a relative path into an absolute, cleaned one,
// trying the working directory first and the compose file's directory
// second. Absolute inputs pass through unchanged.
func resolveExistingPath(p string, opts Options) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	for _, base := range []string{opts.WorkDir, opts.ComposeDir} {
		if base == "" {
			continue
		}
		candidate := filepath.Join(base, p)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", candidate, err)
		}
		return filepath.Clean(abs), nil
	}
	return "", fmt.Errorf("path %q not found relative to %q or %q", p, opts.WorkDir, opts.ComposeDir)
}
