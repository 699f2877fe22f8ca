// Package state persists the set of launched instances across tool
// invocations. Each invocation is a fresh process; the store is the only
// memory of what a previous run started.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// stateFileName is the fixed name of the durable file under the platform
// temp directory. The file spans all projects and services.
const stateFileName = "stackup-instances.json"

const fileMode = 0o644

// Port is one bound host/container port pair.
type Port struct {
	Host      string `json:"host"`
	Container string `json:"container"`
	Debug     bool   `json:"debug,omitempty"`
}

// Instance is one persisted record per launched instance.
type Instance struct {
	ID          string `json:"id"`
	Service     string `json:"service"`
	ComposeFile string `json:"compose_file"`
	Project     string `json:"project,omitempty"`
	Ports       []Port `json:"ports,omitempty"`
}

// stateFile is the on-disk format.
type stateFile struct {
	Version   int        `json:"version"`
	Instances []Instance `json:"instances"`
}

// Store owns the canonical in-memory instance list for the lifetime of one
// process. Persistence is best-effort by contract: Load and Save return
// their underlying errors so callers can discard them deliberately, and the
// in-memory state stays usable either way. The store is not safe for
// concurrent use; cross-process writers race with last-writer-wins
// semantics on the durable file.
type Store struct {
	path      string
	loaded    bool
	instances []Instance
}

// DefaultPath returns the durable file location under the temp directory.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), stateFileName)
}

// NewStore creates a store backed by the given file. An empty path selects
// DefaultPath.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}
	return &Store{path: path}
}

// Path returns the durable file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the durable file on first call; later calls are no-ops. A
// missing, unreadable, or corrupt file degrades to empty state so foreign
// leftovers never block a new launch.
func (s *Store) Load() error {
	if s.loaded {
		return nil
	}
	s.loaded = true
	s.instances = nil

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read state file: %w", err)
	}
	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("decode state file: %w", err)
	}
	s.instances = sf.Instances
	return nil
}

// Save overwrites the durable file wholesale with the current list. An
// empty list removes the file instead.
func (s *Store) Save() error {
	if len(s.instances) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove state file: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(stateFile{Version: 1, Instances: s.instances}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	// Write-then-rename keeps a concurrent reader from seeing a torn file.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), stateFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Chmod(tmpPath, fileMode); err != nil {
		return fmt.Errorf("chmod state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	tmpPath = ""
	return nil
}

// Record appends an instance to the in-memory list. The durable file is
// untouched until the next Save.
func (s *Store) Record(inst Instance) {
	s.instances = append(s.instances, inst)
}

// Remove drops the instances with the given identifiers from the in-memory
// list. Unknown identifiers are ignored.
func (s *Store) Remove(ids ...string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.instances[:0]
	for _, inst := range s.instances {
		if !drop[inst.ID] {
			kept = append(kept, inst)
		}
	}
	s.instances = kept
}

// Instances returns a copy of the current list in record order.
func (s *Store) Instances() []Instance {
	out := make([]Instance, len(s.instances))
	copy(out, s.instances)
	return out
}

// InstanceIDsForService returns the identifiers of every instance owned by
// the named service, matching case-insensitively.
func (s *Store) InstanceIDsForService(service string) []string {
	var ids []string
	for _, inst := range s.instances {
		if strings.EqualFold(inst.Service, service) {
			ids = append(ids, inst.ID)
		}
	}
	return ids
}

// AllInstanceIDs returns the identifiers of every recorded instance.
func (s *Store) AllInstanceIDs() []string {
	ids := make([]string, 0, len(s.instances))
	for _, inst := range s.instances {
		ids = append(ids, inst.ID)
	}
	return ids
}

// MatchingInstance returns the first recorded instance (in list order) whose
// identifier appears in candidates.
func (s *Store) MatchingInstance(candidates []string) (*Instance, bool) {
	set := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		set[id] = true
	}
	for i := range s.instances {
		if set[s.instances[i].ID] {
			inst := s.instances[i]
			return &inst, true
		}
	}
	return nil, false
}
