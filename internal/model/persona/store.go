package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store exposes preset and domain retrieval for HTTP handlers and the chat service.
type Store interface {
	List() []Preset
	FindByID(id string) (Preset, bool)
	Domains() []Domain
	FindDomain(name string) (Domain, bool)
}

// MemoryStore implements Store with in-memory slices.
type MemoryStore struct {
	items   []Preset
	domains []Domain
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied presets and domains.
func NewMemoryStore(items []Preset, domains []Domain) *MemoryStore {
	return &MemoryStore{
		items:   append([]Preset(nil), items...),
		domains: append([]Domain(nil), domains...),
	}
}

// List returns the configured presets.
func (s *MemoryStore) List() []Preset {
	return append([]Preset(nil), s.items...)
}

// FindByID looks up a preset by identifier.
func (s *MemoryStore) FindByID(id string) (Preset, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Preset{}, false
}

// Domains returns the configured coaching specialties.
func (s *MemoryStore) Domains() []Domain {
	return append([]Domain(nil), s.domains...)
}

// FindDomain looks up a domain by name, ignoring case.
func (s *MemoryStore) FindDomain(name string) (Domain, bool) {
	for _, d := range s.domains {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Domain{}, false
}

// Catalog is the YAML document shape accepted by LoadCatalog.
type Catalog struct {
	Presets []Preset `yaml:"presets"`
	Domains []Domain `yaml:"domains"`
}

// LoadCatalog builds a store from the built-in presets, overlaid with the YAML catalog
// at path. Entries in the file replace built-ins with the same id or name.
// An empty path yields the built-ins only.
func LoadCatalog(path string) (*MemoryStore, error) {
	presets := Seed()
	domains := SeedDomains()
	if path == "" {
		return NewMemoryStore(presets, domains), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	for _, p := range catalog.Presets {
		if p.ID == "" {
			return nil, fmt.Errorf("parsing catalog: preset without id")
		}
		presets = mergePreset(presets, p)
	}
	for _, d := range catalog.Domains {
		if d.Name == "" {
			return nil, fmt.Errorf("parsing catalog: domain without name")
		}
		domains = mergeDomain(domains, d)
	}

	return NewMemoryStore(presets, domains), nil
}

func mergePreset(items []Preset, p Preset) []Preset {
	for i := range items {
		if items[i].ID == p.ID {
			items[i] = p
			return items
		}
	}
	return append(items, p)
}

func mergeDomain(items []Domain, d Domain) []Domain {
	for i := range items {
		if strings.EqualFold(items[i].Name, d.Name) {
			items[i] = d
			return items
		}
	}
	return append(items, d)
}
