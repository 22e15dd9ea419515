// Package dependencies holds the single manifest of packages the dashboard
// runtime needs, grouped and selected by variant.
package dependencies

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"

	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// Variants shipped with the embedded manifest
const (
	VariantBase  = "base"
	VariantCloud = "cloud"
)

//go:embed manifest.yaml
var embeddedManifest []byte

// Package is one installable package
type Package struct {
	Name        string `yaml:"name"`
	Group       string `yaml:"group"`
	Description string `yaml:"description,omitempty"`
}

// Manifest declares every package once, tagged with a group. A variant is an
// ordered list of groups.
type Manifest struct {
	Version        int                 `yaml:"version"`
	DefaultVariant string              `yaml:"default_variant"`
	Groups         map[string]string   `yaml:"groups"`
	Entries        []Package           `yaml:"packages"`
	Variants       map[string][]string `yaml:"variants"`
}

// Default returns the embedded manifest
func Default() (*Manifest, error) {
	return Parse(embeddedManifest)
}

// Load reads the manifest at path, or the embedded one when path is empty
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a YAML manifest
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names are unique and every group reference resolves
func (m *Manifest) Validate() error {
	if len(m.Entries) == 0 {
		return fmt.Errorf("%w: no packages declared", domain.ErrInvalidManifest)
	}

	seen := make(map[string]bool, len(m.Entries))
	for i, p := range m.Entries {
		if p.Name == "" {
			return fmt.Errorf("%w: package #%d has no name", domain.ErrInvalidManifest, i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: package %q declared twice", domain.ErrInvalidManifest, p.Name)
		}
		seen[p.Name] = true

		if _, ok := m.Groups[p.Group]; !ok {
			return fmt.Errorf("%w: package %q uses unknown group %q", domain.ErrInvalidManifest, p.Name, p.Group)
		}
	}

	if len(m.Variants) == 0 {
		return fmt.Errorf("%w: no variants declared", domain.ErrInvalidManifest)
	}
	for name, groups := range m.Variants {
		for _, g := range groups {
			if _, ok := m.Groups[g]; !ok {
				return fmt.Errorf("%w: variant %q uses unknown group %q", domain.ErrInvalidManifest, name, g)
			}
		}
	}

	if m.DefaultVariant != "" {
		if _, ok := m.Variants[m.DefaultVariant]; !ok {
			return fmt.Errorf("%w: default variant %q is not declared", domain.ErrInvalidManifest, m.DefaultVariant)
		}
	}
	return nil
}

// Resolve returns the package names of a variant in manifest order. An empty
// variant selects the default one.
func (m *Manifest) Resolve(variant string) ([]string, error) {
	if variant == "" {
		variant = m.DefaultVariant
	}

	groups, ok := m.Variants[variant]
	if !ok {
		return nil, fmt.Errorf("%w: unknown variant %q (available: %v)", domain.ErrInvalidManifest, variant, m.VariantNames())
	}

	selected := make(map[string]bool, len(groups))
	for _, g := range groups {
		selected[g] = true
	}

	var names []string
	for _, p := range m.Entries {
		if selected[p.Group] {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

// VariantNames returns the declared variants in lexical order
func (m *Manifest) VariantNames() []string {
	names := make([]string, 0, len(m.Variants))
	for name := range m.Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
