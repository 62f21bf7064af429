package registry

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const validManifest = `
runner: ubuntu-latest
python: "3.10"
permissions: read
cache:
  paths: [~/.cache/pip]
  key-manifest: setup.py
install:
  - name: framework
    editable: true
    target: "."
    extras: [tensorflow-cpu, tests]
  - name: jax
    target: jax
    extras: [cpu]
    upgrade: true
  - name: tensorflow
    target: tensorflow
    pin: 2.16.0rc0
guides:
  script: shell/run_guides.sh
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRegistry(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	configPath := writeManifest(t, validManifest)

	t.Run("manifest loading", func(t *testing.T) {
		tests := []struct {
			name    string
			cfg     Config
			wantErr bool
		}{
			{
				name:    "valid manifest",
				cfg:     Config{Log: log, ManifestFile: configPath},
				wantErr: false,
			},
			{
				name:    "missing manifest path",
				cfg:     Config{Log: log},
				wantErr: true,
			},
			{
				name:    "nonexistent manifest",
				cfg:     Config{Log: log, ManifestFile: "nonexistent.yaml"},
				wantErr: true,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r, err := NewRegistry(tt.cfg)
				if tt.wantErr {
					require.Error(t, err)
					return
				}
				require.NoError(t, err)
				require.NotNil(t, r.GetConfig(), "config should be loaded")
			})
		}
	})
}

func TestLoadManifest(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	configPath := writeManifest(t, validManifest)

	r, err := NewRegistry(Config{Log: log, ManifestFile: configPath})
	require.NoError(t, err)

	m := r.Manifest()
	require.NotNil(t, m)
	assert.Equal(t, "ubuntu-latest", m.Runner)
	assert.Equal(t, "3.10", m.Python)
	assert.Equal(t, "setup.py", m.Cache.KeyManifest)
	require.Len(t, m.Install, 3)
	assert.Equal(t, "framework", m.Install[0].Name)
	assert.True(t, m.Install[0].Editable)
	assert.Equal(t, []string{"tensorflow-cpu", "tests"}, m.Install[0].Extras)
	assert.True(t, m.Install[1].Upgrade)
	assert.Equal(t, "2.16.0rc0", m.Install[2].Pin)
	assert.Equal(t, "shell/run_guides.sh", m.Guides.Script)
}

func TestRunnerDefaultsToHostOS(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	configPath := writeManifest(t, `
python: "3.10"
cache:
  key-manifest: setup.py
install:
  - name: tensorflow
    target: tensorflow
    pin: 2.16.0rc0
guides:
  script: shell/run_guides.sh
`)

	r, err := NewRegistry(Config{Log: log, ManifestFile: configPath})
	require.NoError(t, err)
	assert.Equal(t, runtime.GOOS, r.Manifest().Runner)
}

func TestInvalidManifests(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()

	tests := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{
			name:     "malformed yaml",
			manifest: "python: [unclosed",
			wantErr:  "parsing manifest file",
		},
		{
			name: "missing guide script",
			manifest: `
python: "3.10"
cache:
  key-manifest: setup.py
install:
  - name: tensorflow
    target: tensorflow
`,
			wantErr: "guides script is required",
		},
		{
			name: "conflicting install group",
			manifest: `
python: "3.10"
cache:
  key-manifest: setup.py
install:
  - name: jax
    target: jax
    pin: "1.0"
    upgrade: true
guides:
  script: shell/run_guides.sh
`,
			wantErr: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeManifest(t, tt.manifest)
			_, err := NewRegistry(Config{Log: log, ManifestFile: configPath})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
