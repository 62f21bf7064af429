package types

import (
	"fmt"
	"regexp"
	"strings"
)

// pinPattern accepts PEP 440 style release versions, including pre-release
// segments such as "2.16.0rc0".
var pinPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*((a|b|rc)[0-9]+)?(\.post[0-9]+)?(\.dev[0-9]+)?$`)

// Manifest is the declarative pipeline definition loaded from guides.yaml.
// It captures the execution environment, the package cache, the ordered
// install groups and the guide entrypoint.
type Manifest struct {
	Runner      string        `yaml:"runner"`
	Python      string        `yaml:"python"`
	Permissions string        `yaml:"permissions,omitempty"`
	Cache       CacheConfig   `yaml:"cache"`
	Install     []InstallSpec `yaml:"install"`
	Guides      GuideConfig   `yaml:"guides"`
}

// CacheConfig describes the pip package cache shared across runs.
type CacheConfig struct {
	// Paths lists the directories the cache covers. Only the pip cache
	// directory is supported today.
	Paths []string `yaml:"paths,omitempty"`
	// KeyManifest is the dependency manifest file whose content hash forms
	// the cache key.
	KeyManifest string `yaml:"key-manifest"`
}

// InstallSpec describes one pip install group. Groups are executed strictly
// in manifest order and each one is fatal on failure.
type InstallSpec struct {
	Name     string   `yaml:"name"`
	Target   string   `yaml:"target"`
	Extras   []string `yaml:"extras,omitempty"`
	Editable bool     `yaml:"editable,omitempty"`
	Upgrade  bool     `yaml:"upgrade,omitempty"`
	Pin      string   `yaml:"pin,omitempty"`
}

// GuideConfig points at the external script that runs the documentation
// guides. The script is an opaque collaborator: exit code 0 is success,
// anything else is a guide failure.
type GuideConfig struct {
	Script string   `yaml:"script"`
	Args   []string `yaml:"args,omitempty"`
}

// Requirement renders the pip requirement string for this install group,
// e.g. ".[tensorflow-cpu,tests]" or "tensorflow==2.16.0rc0".
func (s InstallSpec) Requirement() string {
	req := s.Target
	if len(s.Extras) > 0 {
		req += "[" + strings.Join(s.Extras, ",") + "]"
	}
	if s.Pin != "" {
		req += "==" + s.Pin
	}
	return req
}

// PipArgs renders the full argument list passed to "python -m pip" for this
// install group.
func (s InstallSpec) PipArgs() []string {
	args := []string{"install"}
	if s.Upgrade {
		args = append(args, "--upgrade")
	}
	if s.Editable {
		args = append(args, "-e")
	}
	return append(args, s.Requirement())
}

// Validate checks a single install group for internal consistency.
func (s InstallSpec) Validate() error {
	if s.Target == "" {
		return fmt.Errorf("install group %q: target is required", s.Name)
	}
	if s.Pin != "" && s.Upgrade {
		return fmt.Errorf("install group %q: pin and upgrade are mutually exclusive", s.Name)
	}
	if s.Pin != "" && s.Editable {
		return fmt.Errorf("install group %q: pinned installs cannot be editable", s.Name)
	}
	if s.Pin != "" && !pinPattern.MatchString(s.Pin) {
		return fmt.Errorf("install group %q: invalid pinned version %q", s.Name, s.Pin)
	}
	return nil
}

// Validate checks the manifest as a whole. A manifest that fails validation
// is a runtime error before any pipeline step executes.
func (m *Manifest) Validate() error {
	if m.Python == "" {
		return fmt.Errorf("python interpreter version is required")
	}
	if !regexp.MustCompile(`^[0-9]+\.[0-9]+$`).MatchString(m.Python) {
		return fmt.Errorf("python version must be a major.minor series, got %q", m.Python)
	}
	if m.Cache.KeyManifest == "" {
		return fmt.Errorf("cache key-manifest is required")
	}
	if len(m.Install) == 0 {
		return fmt.Errorf("at least one install group is required")
	}
	seen := make(map[string]bool)
	for _, spec := range m.Install {
		if err := spec.Validate(); err != nil {
			return err
		}
		if spec.Name != "" {
			if seen[spec.Name] {
				return fmt.Errorf("duplicate install group name %q", spec.Name)
			}
			seen[spec.Name] = true
		}
	}
	if m.Guides.Script == "" {
		return fmt.Errorf("guides script is required")
	}
	return nil
}
