// Package registry provides a read-only lookup of well-known documentation
// sources (alias, canonical URL, descriptor metadata) consulted at
// add-time so a user can type `blz add bun` instead of the full URL.
//
// The registry file is a plain struct tree decoded once via
// gopkg.in/yaml.v3, indexed in memory for case-insensitive alias lookup.
package registry

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/outfitter-dev/blz/internal/blzerr"
	"github.com/outfitter-dev/blz/internal/docmodel"
)

// Entry is one known source in the registry file.
type Entry struct {
	Alias       string              `yaml:"alias"`
	URL         string              `yaml:"url"`
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	Category    string              `yaml:"category"`
	Tags        []string            `yaml:"tags"`
	NPM         string              `yaml:"npm,omitempty"`
	GitHub      string              `yaml:"github,omitempty"`
	Aliases     []string            `yaml:"aliases,omitempty"`
}

func (e Entry) Descriptor() docmodel.Descriptor {
	return docmodel.Descriptor{
		Name:        e.Name,
		Description: e.Description,
		Category:    e.Category,
		Tags:        e.Tags,
		NPM:         e.NPM,
		GitHub:      e.GitHub,
		Aliases:     e.Aliases,
	}
}

// Registry is an in-memory, read-only index of known entries by canonical
// alias and by any declared alternate alias.
type Registry struct {
	byAlias map[string]Entry
}

// Load reads a registry file (a YAML document containing a top-level
// `sources:` list of Entry) from path. A missing file yields an empty,
// usable Registry rather than an error, since the registry is optional.
func Load(path string) (*Registry, error) {
	r := &Registry{byAlias: map[string]Entry{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, blzerr.Wrap(blzerr.FileSystem, "read registry file", err)
	}

	var doc struct {
		Sources []Entry `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, blzerr.Wrap(blzerr.ParseError, "decode registry file", err)
	}
	for _, e := range doc.Sources {
		r.index(e)
	}
	return r, nil
}

func (r *Registry) index(e Entry) {
	key := strings.ToLower(e.Alias)
	if key == "" {
		return
	}
	r.byAlias[key] = e
	for _, alt := range e.Aliases {
		r.byAlias[strings.ToLower(alt)] = e
	}
}

// Lookup returns the registry entry for alias (case-insensitive),
// checking both canonical and alternate aliases.
func (r *Registry) Lookup(alias string) (Entry, bool) {
	e, ok := r.byAlias[strings.ToLower(alias)]
	return e, ok
}

// Len returns the number of distinct canonical entries in the registry.
func (r *Registry) Len() int {
	seen := map[string]bool{}
	for _, e := range r.byAlias {
		seen[strings.ToLower(e.Alias)] = true
	}
	return len(seen)
}

// All returns every distinct entry, sorted by alias.
func (r *Registry) All() []Entry {
	seen := map[string]bool{}
	var out []Entry
	for _, e := range r.byAlias {
		key := strings.ToLower(e.Alias)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Alias < out[j-1].Alias; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
