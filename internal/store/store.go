package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/outfitter-dev/blz/internal/blzerr"
	"github.com/outfitter-dev/blz/internal/config"
	"github.com/outfitter-dev/blz/internal/docmodel"
	"github.com/outfitter-dev/blz/internal/index"
)

// Store owns every registered source under a single root directory
// (default ~/.blz/sources). Each operation that mutates a source holds
// that source's write lock for its duration; reads never block on it
// since llms.json is only ever replaced by an atomic rename.
type Store struct {
	Root string
}

// New returns a Store rooted at root, creating it if absent.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, blzerr.Wrap(blzerr.FileSystem, "create store root", err)
	}
	return &Store{Root: root}, nil
}

func (s *Store) layout(alias string) *Layout { return NewLayout(s.Root, alias) }

// EffectiveConfig returns the global config layered with alias's
// settings.toml overrides, if any.
func (s *Store) EffectiveConfig(alias string, global config.Config) (config.Config, error) {
	l := s.layout(alias)
	overrides, err := config.LoadSourceOverrides(l.SettingsPath())
	if err != nil {
		return global, err
	}
	return config.Effective(global, overrides), nil
}

// List returns the alias of every registered source, sorted.
func (s *Store) List() ([]string, error) {
	aliases, err := ListSources(s.Root)
	if err != nil {
		return nil, blzerr.Wrap(blzerr.FileSystem, "list sources", err)
	}
	sort.Strings(aliases)
	return aliases, nil
}

// Add registers a new source: persists the raw text, the parsed document
// plus metadata, and builds its search index. It fails with SourceExists
// if alias is already registered.
func (s *Store) Add(ctx context.Context, alias string, meta docmodel.SourceMetadata, raw []byte, doc *docmodel.ParsedDocument) error {
	l := s.layout(alias)
	if l.Exists() {
		return blzerr.New(blzerr.SourceExists, "source already registered: "+alias)
	}
	if err := l.EnsureDir(); err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "create source dir", err)
	}

	unlock, err := newWriteLock(l.LockPath()).Acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	return s.writeAll(l, meta, raw, doc)
}

// Refresh replaces an existing source's content after a successful
// re-fetch, archiving the previous llms.json/llms.txt pair first so the
// previous N versions stay retrievable under .archive/.
func (s *Store) Refresh(ctx context.Context, alias string, meta docmodel.SourceMetadata, raw []byte, doc *docmodel.ParsedDocument, retain int) error {
	l := s.layout(alias)
	if !l.Exists() {
		return blzerr.New(blzerr.SourceNotFound, "source not registered: "+alias)
	}

	unlock, err := newWriteLock(l.LockPath()).Acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.archiveCurrent(l, retain); err != nil {
		return err
	}
	return s.writeAll(l, meta, raw, doc)
}

// TouchMetadata rewrites only alias's stored metadata (fetched_at and any
// other descriptor fields) in place. It leaves llms.txt, the parsed blocks,
// and the search index untouched -- used on an Unchanged refresh outcome,
// where only the last-checked timestamp advances.
func (s *Store) TouchMetadata(ctx context.Context, alias string, meta docmodel.SourceMetadata) error {
	l := s.layout(alias)
	if !l.Exists() {
		return blzerr.New(blzerr.SourceNotFound, "source not registered: "+alias)
	}

	unlock, err := newWriteLock(l.LockPath()).Acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := os.ReadFile(l.ParsedPath())
	if err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "read parsed document", err)
	}
	var stored docmodel.StoredDocument
	if err := json.Unmarshal(data, &stored); err != nil {
		return blzerr.Wrap(blzerr.ParseError, "decode parsed document", err)
	}
	stored.Metadata = meta

	parsedJSON, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return blzerr.Wrap(blzerr.ParseError, "encode parsed document", err)
	}
	if err := writeAtomic(l.ParsedPath(), parsedJSON, 0o644); err != nil {
		return err
	}

	descJSON, err := toml.Marshal(&meta.Descriptor)
	if err != nil {
		return blzerr.Wrap(blzerr.ParseError, "encode descriptor", err)
	}
	return writeAtomic(l.DescriptorPath(), descJSON, 0o644)
}

// Remove deletes a registered source entirely, including its index and
// archive.
func (s *Store) Remove(ctx context.Context, alias string) error {
	l := s.layout(alias)
	if !l.Exists() {
		return blzerr.New(blzerr.SourceNotFound, "source not registered: "+alias)
	}
	unlock, err := newWriteLock(l.LockPath()).Acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.RemoveAll(l.Dir()); err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "remove source dir", err)
	}
	return nil
}

// Load reads the stored parsed document + metadata for alias, rejecting
// with SchemaMismatch any schema version other than the one this binary
// writes (newer or older).
func (s *Store) Load(alias string) (*docmodel.StoredDocument, error) {
	l := s.layout(alias)
	data, err := os.ReadFile(l.ParsedPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, blzerr.New(blzerr.SourceNotFound, "source not registered: "+alias)
		}
		return nil, blzerr.Wrap(blzerr.FileSystem, "read parsed document", err)
	}
	var stored docmodel.StoredDocument
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, blzerr.Wrap(blzerr.ParseError, "decode parsed document", err)
	}
	if stored.Metadata.SchemaVersion > docmodel.CurrentSchemaVersion {
		return nil, blzerr.New(blzerr.SchemaMismatch, fmt.Sprintf(
			"source %q was written by a newer schema (%d > %d); upgrade blz",
			alias, stored.Metadata.SchemaVersion, docmodel.CurrentSchemaVersion))
	}
	if stored.Metadata.SchemaVersion < docmodel.CurrentSchemaVersion {
		return nil, blzerr.New(blzerr.SchemaMismatch, fmt.Sprintf(
			"source %q was written by an older schema (%d < %d); remove and re-add it",
			alias, stored.Metadata.SchemaVersion, docmodel.CurrentSchemaVersion))
	}
	return &stored, nil
}

// LoadRaw returns the cached raw llms.txt bytes for alias.
func (s *Store) LoadRaw(alias string) ([]byte, error) {
	l := s.layout(alias)
	data, err := os.ReadFile(l.RawPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, blzerr.New(blzerr.SourceNotFound, "source not registered: "+alias)
		}
		return nil, blzerr.Wrap(blzerr.FileSystem, "read raw document", err)
	}
	return data, nil
}

// OpenIndex opens the bleve index for alias for searching.
func (s *Store) OpenIndex(alias string) (bleve.Index, error) {
	l := s.layout(alias)
	idx, err := index.Open(l.IndexDir())
	if err != nil {
		return nil, blzerr.Wrap(blzerr.IndexCorrupt, "open index for "+alias, err)
	}
	return idx, nil
}

// OpenAllIndexes opens every registered source's index, skipping (and
// logging via the returned map of alias->error) any that fail to open so
// one corrupt source doesn't take down search for the rest.
func (s *Store) OpenAllIndexes() (map[string]bleve.Index, map[string]error) {
	aliases, _ := s.List()
	indexes := make(map[string]bleve.Index, len(aliases))
	failures := make(map[string]error)
	for _, alias := range aliases {
		idx, err := s.OpenIndex(alias)
		if err != nil {
			failures[alias] = err
			continue
		}
		indexes[alias] = idx
	}
	return indexes, failures
}

// BlockTextLookup returns an index.BlockTextLookup backed by this store's
// cached parsed documents, suitable for wiring into index.NewSearcher.
func (s *Store) BlockTextLookup() index.BlockTextLookup {
	cache := map[string]*docmodel.StoredDocument{}
	return func(source string, blockID int) (string, bool) {
		doc, ok := cache[source]
		if !ok {
			loaded, err := s.Load(source)
			if err != nil {
				return "", false
			}
			doc = loaded
			cache[source] = doc
		}
		for _, b := range doc.Parsed.Blocks {
			if b.ID == blockID {
				return b.Text, true
			}
		}
		return "", false
	}
}

// Generation describes one retained prior version of a source, as recorded
// under .archive/<timestamp>/.
type Generation struct {
	Timestamp string                  `json:"timestamp"`
	Metadata  docmodel.SourceMetadata `json:"metadata"`
}

// History returns alias's retained prior versions, oldest first, by reading
// back the metadata archiveCurrent copied into each generation directory.
func (s *Store) History(alias string) ([]Generation, error) {
	l := s.layout(alias)
	if !l.Exists() {
		return nil, blzerr.New(blzerr.SourceNotFound, "source not registered: "+alias)
	}
	entries, err := os.ReadDir(l.ArchiveDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, blzerr.Wrap(blzerr.FileSystem, "list archive", err)
	}
	var gens []string
	for _, e := range entries {
		if e.IsDir() {
			gens = append(gens, e.Name())
		}
	}
	sort.Strings(gens)

	out := make([]Generation, 0, len(gens))
	for _, stamp := range gens {
		data, err := os.ReadFile(filepath.Join(l.ArchiveDir(), stamp, parsedFileName))
		if err != nil {
			continue
		}
		var stored docmodel.StoredDocument
		if err := json.Unmarshal(data, &stored); err != nil {
			continue
		}
		out = append(out, Generation{Timestamp: stamp, Metadata: stored.Metadata})
	}
	return out, nil
}

func (s *Store) writeAll(l *Layout, meta docmodel.SourceMetadata, raw []byte, doc *docmodel.ParsedDocument) error {
	if err := writeAtomic(l.RawPath(), raw, 0o644); err != nil {
		return err
	}

	stored := docmodel.StoredDocument{Metadata: meta, Parsed: *doc}
	parsedJSON, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return blzerr.Wrap(blzerr.ParseError, "encode parsed document", err)
	}
	if err := writeAtomic(l.ParsedPath(), parsedJSON, 0o644); err != nil {
		return err
	}

	descJSON, err := toml.Marshal(&meta.Descriptor)
	if err != nil {
		return blzerr.Wrap(blzerr.ParseError, "encode descriptor", err)
	}
	if err := writeAtomic(l.DescriptorPath(), descJSON, 0o644); err != nil {
		return err
	}

	return s.buildIndexAtomic(l, meta.Source, doc)
}

// buildIndexAtomic writes the new index to a temp directory, then atomic
// renames it over the current index directory; the previous directory is
// moved aside to .index.prev and removed only after the rename of the new
// one has landed, so a crash mid-build never leaves searchers without a
// working index.
func (s *Store) buildIndexAtomic(l *Layout, source string, doc *docmodel.ParsedDocument) error {
	tmpDir := l.IndexDir() + ".tmp"
	prevDir := l.IndexDir() + ".prev"
	if err := os.RemoveAll(tmpDir); err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "clear stale temp index", err)
	}
	if err := index.Build(tmpDir, source, doc, index.BuildOptions{}); err != nil {
		os.RemoveAll(tmpDir)
		return blzerr.Wrap(blzerr.IndexError, "build index", err)
	}

	if _, err := os.Stat(l.IndexDir()); err == nil {
		if err := os.RemoveAll(prevDir); err != nil {
			return blzerr.Wrap(blzerr.FileSystem, "clear stale prev index", err)
		}
		if err := os.Rename(l.IndexDir(), prevDir); err != nil {
			return blzerr.Wrap(blzerr.FileSystem, "move current index aside", err)
		}
	}
	if err := os.Rename(tmpDir, l.IndexDir()); err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "publish new index", err)
	}
	if err := os.RemoveAll(prevDir); err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "remove previous index", err)
	}
	return nil
}

// archiveCurrent copies the current llms.txt/llms.json pair into
// .archive/<timestamp>/ and prunes older archive entries beyond retain.
func (s *Store) archiveCurrent(l *Layout, retain int) error {
	if retain <= 0 {
		retain = 5
	}
	if !l.Exists() {
		return nil
	}
	stamp := timestamp()
	gen := filepath.Join(l.ArchiveDir(), stamp)
	if err := os.MkdirAll(gen, 0o755); err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "create archive generation dir", err)
	}
	for _, name := range []string{rawFileName, parsedFileName} {
		src := filepath.Join(l.Dir(), name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return blzerr.Wrap(blzerr.FileSystem, "read for archive", err)
		}
		if err := os.WriteFile(filepath.Join(gen, name), data, 0o644); err != nil {
			return blzerr.Wrap(blzerr.FileSystem, "write archive copy", err)
		}
	}
	return s.pruneArchive(l, retain)
}

func (s *Store) pruneArchive(l *Layout, retain int) error {
	entries, err := os.ReadDir(l.ArchiveDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return blzerr.Wrap(blzerr.FileSystem, "list archive", err)
	}
	var gens []string
	for _, e := range entries {
		if e.IsDir() {
			gens = append(gens, e.Name())
		}
	}
	sort.Strings(gens) // timestamp() format sorts lexicographically by time
	if len(gens) <= retain {
		return nil
	}
	for _, old := range gens[:len(gens)-retain] {
		if err := os.RemoveAll(filepath.Join(l.ArchiveDir(), old)); err != nil {
			return blzerr.Wrap(blzerr.FileSystem, "prune old archive generation", err)
		}
	}
	return nil
}

func timestamp() string {
	return time.Now().UTC().Format("20060102T150405.000000000Z")
}
