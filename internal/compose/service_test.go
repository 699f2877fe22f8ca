package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "build section rejected",
			body:    "build: .\nimage: web:latest",
			wantErr: `field "build"`,
		},
		{
			name:    "container_name rejected",
			body:    "image: web:latest\ncontainer_name: fixed",
			wantErr: `field "container_name"`,
		},
		{
			name:    "extends rejected",
			body:    "extends:\n  service: base",
			wantErr: `field "extends"`,
		},
		{
			name: "plain service accepted",
			body: "image: web:latest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFields("web", serviceFields(t, tt.body))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestResolveImage(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		opts       Options
		service    string
		wantImage  string
		wantSource ImageSource
	}{
		{
			name:       "local service retagged with build version",
			body:       "image: acme/web:old",
			opts:       Options{LocalService: "web", BuildVersion: "v9"},
			service:    "web",
			wantImage:  "acme/web:v9",
			wantSource: SourceBuild,
		},
		{
			name:       "registry port survives retagging",
			body:       "image: registry.local:5000/web",
			opts:       Options{LocalService: "web", BuildVersion: "v9"},
			service:    "web",
			wantImage:  "registry.local:5000/web:v9",
			wantSource: SourceBuild,
		},
		{
			name:       "no-build demotes local service to defined",
			body:       "image: acme/web:old",
			opts:       Options{LocalService: "web", BuildVersion: "v9", NoBuild: true},
			service:    "web",
			wantImage:  "acme/web:old",
			wantSource: SourceDefined,
		},
		{
			name:       "local-build marker stripped",
			body:       "image: acme/side:dev#local-build",
			service:    "side",
			wantImage:  "acme/side:dev",
			wantSource: SourceBuild,
		},
		{
			name:       "skip-pull marker stripped",
			body:       "image: redis:7#skip-pull",
			service:    "cache",
			wantImage:  "redis:7",
			wantSource: SourceCache,
		},
		{
			name:       "skip-pull flag applies to unmarked images",
			body:       "image: postgres:16",
			opts:       Options{SkipPull: true},
			service:    "db",
			wantImage:  "postgres:16",
			wantSource: SourceCache,
		},
		{
			name:       "custom markers override defaults",
			body:       "image: redis:7#mine",
			opts:       Options{SkipPullTag: "#mine"},
			service:    "cache",
			wantImage:  "redis:7",
			wantSource: SourceCache,
		},
		{
			name:       "plain image is defined",
			body:       "image: nginx:latest",
			service:    "web",
			wantImage:  "nginx:latest",
			wantSource: SourceDefined,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := serviceFields(t, tt.body)
			image, source, err := resolveImage(tt.service, fields, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantImage, image)
			assert.Equal(t, tt.wantSource, source)

			// The node is rewritten in place.
			node := mapGet(fields, "image")
			require.NotNil(t, node)
			assert.Equal(t, tt.wantImage, node.Value)
		})
	}
}

func TestStripTag(t *testing.T) {
	assert.Equal(t, "acme/web", stripTag("acme/web:latest"))
	assert.Equal(t, "web", stripTag("web:1.0"))
	assert.Equal(t, "web", stripTag("web"))
	assert.Equal(t, "registry.local:5000/web", stripTag("registry.local:5000/web"))
	assert.Equal(t, "registry.local:5000/web", stripTag("registry.local:5000/web:1.0"))
}

func TestResolveEnvFiles(t *testing.T) {
	workDir := t.TempDir()
	composeDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(workDir, "work.env"), []byte("A=1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(composeDir, "fallback.env"), []byte("B=2\n"), 0o644))
	// Present in both; the working directory must win.
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "both.env"), []byte("C=3\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(composeDir, "both.env"), []byte("C=4\n"), 0o644))

	opts := Options{WorkDir: workDir, ComposeDir: composeDir}

	t.Run("single entry resolved against working directory", func(t *testing.T) {
		fields := serviceFields(t, "env_file: work.env")
		require.NoError(t, resolveEnvFiles("web", fields, opts))
		assert.Equal(t, filepath.Join(workDir, "work.env"), mapGet(fields, "env_file").Value)
	})

	t.Run("list entries resolved individually", func(t *testing.T) {
		fields := serviceFields(t, "env_file:\n  - work.env\n  - fallback.env\n  - both.env")
		require.NoError(t, resolveEnvFiles("web", fields, opts))

		node := mapGet(fields, "env_file")
		require.Len(t, node.Content, 3)
		assert.Equal(t, filepath.Join(workDir, "work.env"), node.Content[0].Value)
		assert.Equal(t, filepath.Join(composeDir, "fallback.env"), node.Content[1].Value)
		assert.Equal(t, filepath.Join(workDir, "both.env"), node.Content[2].Value)
	})

	t.Run("absolute path passes through", func(t *testing.T) {
		abs := filepath.Join(workDir, "work.env")
		fields := serviceFields(t, "env_file: "+abs)
		require.NoError(t, resolveEnvFiles("web", fields, opts))
		assert.Equal(t, abs, mapGet(fields, "env_file").Value)
	})

	t.Run("missing file is fatal", func(t *testing.T) {
		fields := serviceFields(t, "env_file: nope.env")
		err := resolveEnvFiles("web", fields, opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope.env")

		var merr *ManifestError
		require.ErrorAs(t, err, &merr)
		assert.Equal(t, "web", merr.Service)
		assert.Equal(t, "env_file", merr.Field)
	})

	t.Run("mapping shape rejected", func(t *testing.T) {
		fields := serviceFields(t, "env_file:\n  path: work.env")
		err := resolveEnvFiles("web", fields, opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected string or list")
	})
}

func TestResolveVolumes(t *testing.T) {
	workDir := t.TempDir()
	composeDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(workDir, "data"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(composeDir, "conf"), 0o755))

	opts := Options{WorkDir: workDir, ComposeDir: composeDir}

	t.Run("relative host paths qualified", func(t *testing.T) {
		fields := serviceFields(t, `
volumes:
  - ./data:/var/lib/data
  - ./conf:/etc/app:ro
  - named-volume:/cache
  - /abs/path:/mnt
`)
		require.NoError(t, resolveVolumes("web", fields, opts))

		node := mapGet(fields, "volumes")
		require.Len(t, node.Content, 4)
		assert.Equal(t, filepath.Join(workDir, "data")+":/var/lib/data", node.Content[0].Value)
		assert.Equal(t, filepath.Join(composeDir, "conf")+":/etc/app:ro", node.Content[1].Value)
		assert.Equal(t, "named-volume:/cache", node.Content[2].Value)
		assert.Equal(t, "/abs/path:/mnt", node.Content[3].Value)
	})

	t.Run("missing host directory is fatal", func(t *testing.T) {
		fields := serviceFields(t, "volumes:\n  - ./missing:/srv")
		err := resolveVolumes("web", fields, opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("no volumes section", func(t *testing.T) {
		fields := serviceFields(t, "image: plain:latest")
		assert.NoError(t, resolveVolumes("web", fields, opts))
	})
}
