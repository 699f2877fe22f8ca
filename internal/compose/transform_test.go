package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformer_Transform(t *testing.T) {
	workDir := t.TempDir()
	composeDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(composeDir, "app.env"), []byte("A=1\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(workDir, "data"), 0o755))

	manifest := `
services:
  web:
    image: acme/web:old
    env_file: app.env
    volumes:
      - ./data:/var/lib/data
    ports:
      - "8080:80"
  cache:
    image: redis:7#skip-pull
  worker:
    image: ghcr.io/acme/worker:v2
    ports:
      - "9000-9001"
`

	doc, err := Parse([]byte(manifest))
	require.NoError(t, err)

	opts := Options{
		WorkDir:      workDir,
		ComposeDir:   composeDir,
		LocalService: "web",
		BuildVersion: "v9",
		StaticPorts:  true,
	}

	result, err := NewTransformer(nil).Transform(doc, opts)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Services, 3)

	web := result.Services[0]
	assert.Equal(t, "web", web.Name)
	assert.Equal(t, "acme/web:v9", web.Image)
	assert.Equal(t, SourceBuild, web.Source)
	assert.Equal(t, []PortInfo{{HostPort: "8080", ContainerPort: "80"}}, web.Ports)

	cache := result.Services[1]
	assert.Equal(t, "redis:7", cache.Image)
	assert.Equal(t, SourceCache, cache.Source)

	worker := result.Services[2]
	assert.Equal(t, SourceDefined, worker.Source)
	assert.ElementsMatch(t, []PortInfo{
		{HostPort: "9000", ContainerPort: "9000"},
		{HostPort: "9001", ContainerPort: "9001"},
	}, worker.Ports)

	// The document itself carries the rewrites.
	out, err := doc.Bytes()
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "acme/web:v9")
	assert.Contains(t, text, filepath.Join(composeDir, "app.env"))
	assert.Contains(t, text, filepath.Join(workDir, "data")+":/var/lib/data")
	assert.Contains(t, text, "9000:9000")
	assert.NotContains(t, text, "#skip-pull")
}

func TestTransformer_Transform_CrossServiceCollision(t *testing.T) {
	manifest := `
services:
  a:
    image: one:1
    ports:
      - "8080"
  b:
    image: two:2
    ports:
      - "8080"
`
	doc, err := Parse([]byte(manifest))
	require.NoError(t, err)

	result, err := NewTransformer(nil).Transform(doc, Options{StaticPorts: true})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], `"b"`)

	assert.Equal(t, []PortInfo{{HostPort: "8080", ContainerPort: "8080"}}, result.Services[0].Ports)
	assert.Equal(t, []PortInfo{{HostPort: "0", ContainerPort: "8080"}}, result.Services[1].Ports)
}

func TestTransformer_Transform_FailsAtomically(t *testing.T) {
	manifest := `
services:
  good:
    image: fine:1
  bad:
    image: broken:1
    build: .
`
	doc, err := Parse([]byte(manifest))
	require.NoError(t, err)

	result, err := NewTransformer(nil).Transform(doc, Options{})
	require.Error(t, err)
	assert.Nil(t, result)

	var merr *ManifestError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "bad", merr.Service)
	assert.Equal(t, "build", merr.Field)
}

func TestTransformer_Transform_LegacyManifest(t *testing.T) {
	manifest := `
web:
  image: nginx:latest
  ports:
    - "80"
`
	doc, err := Parse([]byte(manifest))
	require.NoError(t, err)

	result, err := NewTransformer(nil).Transform(doc, Options{})
	require.NoError(t, err)
	require.Len(t, result.Services, 1)
	assert.Equal(t, "nginx:latest", result.Services[0].Image)
	assert.Equal(t, []PortInfo{{HostPort: "0", ContainerPort: "80"}}, result.Services[0].Ports)
}
