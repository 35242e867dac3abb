package registry

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
sources:
  - alias: bun
    url: https://bun.sh/llms.txt
    name: Bun
    description: A fast JavaScript runtime
    category: runtime
    tags: [js, runtime]
    aliases: [bunjs]
  - alias: deno
    url: https://deno.land/llms.txt
    name: Deno
`

func TestLoad_MissingFileReturnsEmptyRegistry(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d entries", r.Len())
	}
}

func TestLoad_IndexesCanonicalAndAlternateAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 distinct entries, got %d", r.Len())
	}
	if e, ok := r.Lookup("bun"); !ok || e.URL != "https://bun.sh/llms.txt" {
		t.Fatalf("expected bun entry, got %+v ok=%v", e, ok)
	}
	if e, ok := r.Lookup("BUNJS"); !ok || e.Alias != "bun" {
		t.Fatalf("expected case-insensitive alternate alias lookup, got %+v ok=%v", e, ok)
	}
	if _, ok := r.Lookup("nonexistent"); ok {
		t.Fatalf("expected lookup miss for unknown alias")
	}
}

func TestAll_ReturnsSortedDistinctEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	all := r.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].Alias != "bun" || all[1].Alias != "deno" {
		t.Fatalf("expected sorted [bun, deno], got [%s, %s]", all[0].Alias, all[1].Alias)
	}
}
