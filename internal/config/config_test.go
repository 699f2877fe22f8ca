package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load_CreatesDefaultIfMissing(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader()
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	// Check defaults
	assert.Equal(t, "", cfg.Project.Service)
	assert.Equal(t, "latest", cfg.Project.Version)
	assert.Equal(t, "#local-build", cfg.Tags.LocalBuild)
	assert.Equal(t, "#skip-pull", cfg.Tags.SkipPull)
	assert.Equal(t, "docker", cfg.Compose.Binary)
	assert.Equal(t, "", cfg.Storage.StateFile)
	assert.Equal(t, "stackup", cfg.Registry.CredentialService)

	// Verify file was created
	_, err = os.Stat(loader.Path())
	assert.NoError(t, err)
}

func TestLoader_Load_ReadsExistingConfig(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "stackup")
	require.NoError(t, os.MkdirAll(configDir, 0755))

	configContent := `
project:
  service: webapp
  version: 1.4.2
  build_context: ~/src/webapp
tags:
  local_build: "#mine"
  skip_pull: "#cached"
compose:
  binary: podman
  flags:
    remove-orphans: true
storage:
  state_file: ~/custom/state.json
`
	require.NoError(t, os.WriteFile(
		filepath.Join(configDir, "config.yaml"),
		[]byte(configContent),
		0644,
	))

	loader, err := NewLoader()
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "webapp", cfg.Project.Service)
	assert.Equal(t, "1.4.2", cfg.Project.Version)
	assert.Equal(t, "#mine", cfg.Tags.LocalBuild)
	assert.Equal(t, "#cached", cfg.Tags.SkipPull)
	assert.Equal(t, "podman", cfg.Compose.Binary)
	assert.Equal(t, true, cfg.Compose.Flags["remove-orphans"])
	assert.Equal(t, filepath.Join(tmpHome, "custom", "state.json"), cfg.Storage.StateFile)
	assert.Equal(t, filepath.Join(tmpHome, "src", "webapp"), cfg.Project.BuildContext)
}

func TestLoader_Load_EnvVarOverride(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("STACKUP_PROJECT_SERVICE", "api")
	t.Setenv("STACKUP_COMPOSE_BINARY", "nerdctl")

	loader, err := NewLoader()
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.Project.Service)
	assert.Equal(t, "nerdctl", cfg.Compose.Binary)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		cfg := &Config{
			Tags:    TagsConfig{LocalBuild: "#local-build", SkipPull: "#skip-pull"},
			Compose: ComposeConfig{Binary: "docker"},
		}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing binary fails", func(t *testing.T) {
		cfg := &Config{
			Tags: TagsConfig{LocalBuild: "#local-build", SkipPull: "#skip-pull"},
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing tag markers fail", func(t *testing.T) {
		cfg := &Config{
			Compose: ComposeConfig{Binary: "docker"},
		}
		assert.Error(t, cfg.Validate())
	})
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"project.service", false},
		{"project.version", false},
		{"tags.local_build", false},
		{"tags.skip_pull", false},
		{"compose.binary", false},
		{"compose.flags.remove-orphans", false},
		{"storage.state_file", false},
		{"registry.insecure", false},
		{"", true},
		{"nonsense", true},
		{"project.bogus", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoader_SetAndGet(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader()
	require.NoError(t, err)

	_, err = loader.Load()
	require.NoError(t, err)

	require.NoError(t, loader.Set("project.service", "webapp"))

	got, err := loader.Get("project.service")
	require.NoError(t, err)
	assert.Equal(t, "webapp", got)

	err = loader.Set("bogus.key", "value")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
