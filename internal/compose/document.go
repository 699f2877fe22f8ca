// Package compose transforms docker-compose manifests into a form that can
// be launched deterministically: images are classified and retagged, relative
// paths are qualified, port ranges are expanded, and variables are
// substituted. The manifest is held as a yaml.v3 node tree so unknown fields
// round-trip untouched.
package compose

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is a parsed compose manifest.
type Document struct {
	root *yaml.Node
}

// Parse builds a Document from raw manifest text. Variable substitution, if
// any, must happen before parsing (see Substitute).
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &ManifestError{Msg: "empty document"}
	}
	return &Document{root: &root}, nil
}

// Load reads and parses a manifest file without substitution.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Bytes serializes the document back to YAML.
func (d *Document) Bytes() ([]byte, error) {
	out, err := yaml.Marshal(d.root)
	if err != nil {
		return nil, fmt.Errorf("serialize manifest: %w", err)
	}
	return out, nil
}

// Write serializes the document to a file.
func (d *Document) Write(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// top returns the top-level mapping of the document.
func (d *Document) top() (*yaml.Node, error) {
	top, err := asMapping(d.root.Content[0])
	if err != nil {
		return nil, &ManifestError{Msg: "top level is not a mapping: " + err.Error()}
	}
	return top, nil
}

// Services returns the normalized service-name to service-fields mapping.
// Versioned manifests wrap it in a "services" key; legacy manifests are that
// mapping directly. All downstream logic operates on the returned node.
func (d *Document) Services() (*yaml.Node, error) {
	top, err := d.top()
	if err != nil {
		return nil, err
	}
	if svcs := mapGet(top, "services"); svcs != nil {
		m, err := asMapping(svcs)
		if err != nil {
			return nil, &ManifestError{Field: "services", Msg: err.Error()}
		}
		return m, nil
	}
	return top, nil
}

// ServiceNames returns the service names in document order.
func (d *Document) ServiceNames() ([]string, error) {
	services, err := d.Services()
	if err != nil {
		return nil, err
	}
	var names []string
	err = eachPair(services, func(name string, _ *yaml.Node) error {
		names = append(names, name)
		return nil
	})
	return names, err
}

// InternalNetworkNames returns the names of networks this manifest defines
// itself. Networks marked external are managed outside the manifest and are
// excluded.
func (d *Document) InternalNetworkNames() ([]string, error) {
	return d.internalNames("networks")
}

// InternalVolumeNames returns the names of named volumes this manifest
// defines itself, excluding external ones.
func (d *Document) InternalVolumeNames() ([]string, error) {
	return d.internalNames("volumes")
}

func (d *Document) internalNames(key string) ([]string, error) {
	top, err := d.top()
	if err != nil {
		return nil, err
	}
	// Legacy manifests have no top-level networks/volumes sections; every
	// top-level key is a service.
	if mapGet(top, "services") == nil {
		return nil, nil
	}
	section := mapGet(top, key)
	if section == nil {
		return nil, nil
	}
	m, err := asMapping(section)
	if err != nil {
		return nil, &ManifestError{Field: key, Msg: err.Error()}
	}
	var names []string
	err = eachPair(m, func(name string, value *yaml.Node) error {
		value = resolveAlias(value)
		if value.Kind == yaml.MappingNode && mapGet(value, "external") != nil {
			return nil
		}
		names = append(names, name)
		return nil
	})
	return names, err
}
