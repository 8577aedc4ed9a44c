package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultSeed []byte

// SeedFile is the on-disk layout of catalog seed data.
type SeedFile struct {
	Lists map[string][]SeedEntry `yaml:"lists"`
}

type SeedEntry struct {
	Key    string `yaml:"key"`
	Value  string `yaml:"value"`
	Active *bool  `yaml:"active,omitempty"` // defaults to true
}

// ParseSeed decodes seed YAML.
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed: %w", err)
	}
	return &seed, nil
}

// LoadSeed reads seed YAML from path. An empty path yields the built-in defaults.
func LoadSeed(path string) (*SeedFile, error) {
	if path == "" {
		return ParseSeed(defaultSeed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog seed %s: %w", path, err)
	}
	return ParseSeed(data)
}

// Entries flattens the seed into catalog entries.
func (f *SeedFile) Entries() []Entry {
	var entries []Entry
	for listType, items := range f.Lists {
		for _, item := range items {
			active := true
			if item.Active != nil {
				active = *item.Active
			}
			entries = append(entries, Entry{ListType: listType, Key: item.Key, Value: item.Value, Active: active})
		}
	}
	return entries
}

// Validate rejects bracket entries whose value is not an amount.
func (f *SeedFile) Validate() error {
	for _, item := range f.Lists[ListBudgetBrackets] {
		if _, err := ParseDollars(item.Value); err != nil {
			return fmt.Errorf("bracket %q: %w", item.Key, err)
		}
	}
	return nil
}

// Seed upserts every entry of the seed file into the store.
func (s *Store) Seed(ctx context.Context, seed *SeedFile) (int, error) {
	if err := seed.Validate(); err != nil {
		return 0, err
	}
	entries := seed.Entries()
	if err := s.Upsert(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// SeedIfEmpty loads the built-in defaults into an empty catalog.
func (s *Store) SeedIfEmpty(ctx context.Context) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	seed, err := LoadSeed("")
	if err != nil {
		return 0, err
	}
	return s.Seed(ctx, seed)
}
