package registry

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ml-infra/guide-acceptor/types"
)

// Registry manages the pipeline manifest and its configuration
type Registry struct {
	config   Config
	manifest *types.Manifest
	mu       sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log          *zap.SugaredLogger
	ManifestFile string
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.ManifestFile == "" {
		return nil, fmt.Errorf("manifest file is required")
	}
	if cfg.Log == nil {
		cfg.Log = zap.S()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{
		config: cfg,
	}

	if err := r.loadManifest(cfg.ManifestFile); err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	cfg.Log.Debugw("Registry loaded",
		"python", r.manifest.Python,
		"len(install)", len(r.manifest.Install),
		"guides", r.manifest.Guides.Script)

	return r, nil
}

// loadManifest loads, defaults and validates the pipeline manifest
func (r *Registry) loadManifest(cfgPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	manifest, err := loadManifest(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if manifest.Runner == "" {
		manifest.Runner = runtime.GOOS
	}

	if err := manifest.Validate(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	r.manifest = manifest
	return nil
}

// Manifest returns the loaded pipeline manifest
func (r *Registry) Manifest() *types.Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.manifest
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

// loadManifest loads a pipeline manifest from a file
func loadManifest(path string) (*types.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}

	var manifest types.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest file: %w", err)
	}

	return &manifest, nil
}
