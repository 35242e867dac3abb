// Command blz is the CLI collaborator for the core library: it parses
// arguments, calls into internal/{fetch,parse,index,store,
// retrieve,registry,config}, and formats the result. Most commands
// dispatch to library functions; the refresh decision (refreshOne) and
// the per-source integrity check (validateOne) are implemented in this
// package.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/outfitter-dev/blz/internal/blzerr"
	"github.com/outfitter-dev/blz/internal/config"
	"github.com/outfitter-dev/blz/internal/docmodel"
	"github.com/outfitter-dev/blz/internal/fetch"
	"github.com/outfitter-dev/blz/internal/index"
	"github.com/outfitter-dev/blz/internal/parse"
	"github.com/outfitter-dev/blz/internal/registry"
	"github.com/outfitter-dev/blz/internal/render"
	"github.com/outfitter-dev/blz/internal/retrieve"
	"github.com/outfitter-dev/blz/internal/store"
)

// Build information populated via -ldflags at build time by CI.
var (
	buildVersion = "0.0.0-dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var cfgPath, root string
	var verbose bool
	globals := flag.NewFlagSet("blz", flag.ContinueOnError)
	globals.StringVar(&cfgPath, "config", "", "path to global config.toml")
	globals.StringVar(&root, "root", "", "override the source store root")
	globals.BoolVar(&verbose, "v", false, "verbose logging")
	if err := globals.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	rest := globals.Args()
	if len(rest) < 1 {
		printUsage()
		os.Exit(2)
	}
	cmd := rest[0]
	args := rest[1:]

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fail(err)
	}
	if root != "" {
		cfg.Root = root
	}

	st, err := store.New(cfg.Root)
	if err != nil {
		fail(err)
	}

	var runErr error
	switch cmd {
	case "add":
		runErr = cmdAdd(args, st, cfg)
	case "list":
		runErr = cmdList(args, st)
	case "refresh":
		runErr = cmdRefresh(args, st, cfg)
	case "remove":
		runErr = cmdRemove(args, st)
	case "search":
		runErr = cmdSearch(args, st)
	case "get":
		runErr = cmdGet(args, st)
	case "upgrade":
		runErr = cmdUpgrade(args, st, cfg)
	case "info":
		runErr = cmdInfo(args, st)
	case "toc":
		runErr = cmdTOC(args, st)
	case "map":
		runErr = cmdMap(args, st)
	case "validate":
		runErr = cmdValidate(args, st)
	case "stats":
		runErr = cmdStats(args, st)
	case "history":
		runErr = cmdHistory(args, st)
	case "version":
		runErr = printJSON(map[string]string{"version": buildVersion, "commit": buildCommit, "date": buildDate})
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "blz: unknown command %q\n", cmd)
		printUsage()
		os.Exit(2)
	}

	if runErr != nil {
		fail(runErr)
	}
}

func fail(err error) {
	log.Error().Err(err).Msg("blz failed")
	os.Exit(blzerr.ExitCode(err))
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `blz - local-first search cache for llms.txt documentation

Usage:
  blz add [--force] <alias> [url]
  blz list
  blz refresh <alias>|--all
  blz remove <alias>
  blz search [--sources a,b] [--limit N] [--offset N] [--headings-only] [--heading-level N-M] <query>
  blz get [--context none|symmetric:K|asymmetric:B,A|all[:max]] <citation...>
  blz upgrade <alias>
  blz info <alias>
  blz toc [--plain] <alias>
  blz map <alias>
  blz validate <alias>|--all
  blz stats <alias>|--all
  blz history <alias>
  blz version`)
}

func cmdAdd(args []string, st *store.Store, cfg config.Config) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	force := fs.Bool("force", false, "overwrite an existing source")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 1 {
		return blzerr.New(blzerr.InvalidAlias, "usage: blz add <alias> [url]")
	}
	alias := rest[0]
	url := ""
	if len(rest) >= 2 {
		url = rest[1]
	}

	reg, _ := registry.Load(defaultRegistryPath())
	if url == "" {
		entry, ok := reg.Lookup(alias)
		if !ok {
			return blzerr.New(blzerr.InvalidURL, "no URL given and no registry entry for alias "+alias)
		}
		url = entry.URL
	}

	if *force {
		_ = st.Remove(context.Background(), alias)
	}

	client := clientFromConfig(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout*4)
	defer cancel()

	resolved, err := client.ResolveBest(ctx, url)
	if err != nil {
		return err
	}
	result, err := client.Fetch(ctx, resolved.URL, "", "")
	if err != nil {
		return err
	}
	if result.Kind != fetch.Modified {
		return blzerr.New(blzerr.NetworkError, "expected initial fetch to be Modified")
	}
	if fetch.IsPlaceholder404(result.Body) {
		return blzerr.New(blzerr.InvalidURL, "fetched document looks like a placeholder 404 page")
	}

	doc := parse.Parse(alias, result.Body)

	meta := docmodel.SourceMetadata{
		Source:        alias,
		URL:           resolved.URL,
		Variant:       variantFromName(resolved.Variant),
		FetchedAt:     time.Now().UTC().Format(time.RFC3339),
		ETag:          result.ETag,
		LastModified:  result.LastModified,
		Checksum:      result.Checksum,
		TotalLines:    doc.LineMap.TotalLines,
		HeadingsCount: doc.HeadingsCount(),
		SchemaVersion: docmodel.CurrentSchemaVersion,
	}
	if entry, ok := reg.Lookup(alias); ok {
		meta.Descriptor = entry.Descriptor()
	}

	if err := st.Add(ctx, alias, meta, result.Body, doc); err != nil {
		return err
	}
	return printJSON(meta)
}

func cmdList(_ []string, st *store.Store) error {
	aliases, err := st.List()
	if err != nil {
		return err
	}
	return printJSON(aliases)
}

func cmdRefresh(args []string, st *store.Store, cfg config.Config) error {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	all := fs.Bool("all", false, "refresh every registered source")
	fs.Parse(args)
	rest := fs.Args()

	var aliases []string
	if *all {
		list, err := st.List()
		if err != nil {
			return err
		}
		aliases = list
	} else {
		if len(rest) < 1 {
			return blzerr.New(blzerr.InvalidAlias, "usage: blz refresh <alias>|--all")
		}
		aliases = rest
	}

	client := clientFromConfig(cfg)
	outcomes := map[string]string{}
	for _, alias := range aliases {
		outcome, err := refreshOne(st, client, cfg, alias)
		if err != nil {
			outcomes[alias] = "error: " + err.Error()
			continue
		}
		outcomes[alias] = outcome
	}
	return printJSON(outcomes)
}

func refreshOne(st *store.Store, client *fetch.Client, cfg config.Config, alias string) (string, error) {
	stored, err := st.Load(alias)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout*4)
	defer cancel()

	result, err := client.Fetch(ctx, stored.Metadata.URL, stored.Metadata.ETag, stored.Metadata.LastModified)
	if err != nil {
		return "", err
	}
	if result.Kind == fetch.NotModified || result.Checksum == stored.Metadata.Checksum {
		meta := stored.Metadata
		meta.FetchedAt = time.Now().UTC().Format(time.RFC3339)
		if err := st.TouchMetadata(ctx, alias, meta); err != nil {
			return "", err
		}
		return "Unchanged", nil
	}

	doc := parse.Parse(alias, result.Body)
	meta := stored.Metadata
	meta.FetchedAt = time.Now().UTC().Format(time.RFC3339)
	meta.ETag = result.ETag
	meta.LastModified = result.LastModified
	meta.Checksum = result.Checksum
	meta.TotalLines = doc.LineMap.TotalLines
	meta.HeadingsCount = doc.HeadingsCount()

	if err := st.Refresh(ctx, alias, meta, result.Body, doc, cfg.ArchiveRetention); err != nil {
		return "", err
	}
	return fmt.Sprintf("Updated(%s -> %s)", stored.Metadata.Checksum, meta.Checksum), nil
}

func cmdRemove(args []string, st *store.Store) error {
	if len(args) < 1 {
		return blzerr.New(blzerr.InvalidAlias, "usage: blz remove <alias>")
	}
	return st.Remove(context.Background(), args[0])
}

func cmdSearch(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	sources := fs.String("sources", "", "comma-separated list of source aliases")
	limit := fs.Int("limit", 10, "max results")
	offset := fs.Int("offset", 0, "pagination offset")
	headingsOnly := fs.Bool("headings-only", false, "restrict to heading_path field")
	headingLevel := fs.String("heading-level", "", "heading level filter: N, N,M, N-M, <=N, >=N")
	maxChars := fs.Int("max-chars", 0, "snippet window size")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 1 {
		return blzerr.New(blzerr.InvalidAlias, "usage: blz search <query>")
	}
	q := index.Query{
		Text:         rest[0],
		Limit:        *limit,
		Offset:       *offset,
		HeadingsOnly: *headingsOnly,
		HeadingLevel: *headingLevel,
		MaxChars:     *maxChars,
	}
	if *sources != "" {
		q.Sources = splitComma(*sources)
	}

	indexes, _ := st.OpenAllIndexes()
	defer func() {
		for _, idx := range indexes {
			idx.Close()
		}
	}()
	searcher := index.NewSearcher(indexes, st.BlockTextLookup())
	page, err := searcher.Search(q)
	if err != nil {
		return err
	}
	return printJSON(page)
}

func cmdGet(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	contextFlag := fs.String("context", "none", "none|symmetric:K|asymmetric:B,A|all[:max]")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 1 {
		return blzerr.New(blzerr.InvalidCitation, "usage: blz get <alias:range...>")
	}
	mode, err := parseContextFlag(*contextFlag)
	if err != nil {
		return err
	}

	r := retrieve.New(st)
	input := rest[0]
	for _, extra := range rest[1:] {
		input += " " + extra
	}
	resps, err := r.Resolve(input, mode)
	if err != nil {
		return err
	}
	return printJSON(resps)
}

func cmdUpgrade(args []string, st *store.Store, cfg config.Config) error {
	if len(args) < 1 {
		return blzerr.New(blzerr.InvalidAlias, "usage: blz upgrade <alias>")
	}
	alias := args[0]
	stored, err := st.Load(alias)
	if err != nil {
		return err
	}
	if stored.Metadata.Variant != docmodel.VariantLlms {
		return printJSON(map[string]string{"alias": alias, "result": "NoUpgradeNeeded"})
	}

	client := clientFromConfig(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout*4)
	defer cancel()

	resolved, err := client.ResolveBest(ctx, stored.Metadata.URL)
	if err != nil {
		return err
	}
	if resolved.Variant != "llms-full.txt" {
		return printJSON(map[string]string{"alias": alias, "result": "NoUpgradeNeeded"})
	}

	result, err := client.Fetch(ctx, resolved.URL, "", "")
	if err != nil {
		return err
	}
	doc := parse.Parse(alias, result.Body)
	meta := stored.Metadata
	meta.URL = resolved.URL
	meta.Variant = docmodel.VariantLlmsFull
	meta.FetchedAt = time.Now().UTC().Format(time.RFC3339)
	meta.ETag = result.ETag
	meta.LastModified = result.LastModified
	meta.Checksum = result.Checksum
	meta.TotalLines = doc.LineMap.TotalLines
	meta.HeadingsCount = doc.HeadingsCount()

	if err := st.Refresh(ctx, alias, meta, result.Body, doc, cfg.ArchiveRetention); err != nil {
		return err
	}
	return printJSON(map[string]string{"alias": alias, "result": "Upgraded"})
}

func cmdInfo(args []string, st *store.Store) error {
	if len(args) < 1 {
		return blzerr.New(blzerr.InvalidAlias, "usage: blz info <alias>")
	}
	stored, err := st.Load(args[0])
	if err != nil {
		return err
	}
	return printJSON(stored.Metadata)
}

func cmdTOC(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("toc", flag.ExitOnError)
	plain := fs.Bool("plain", false, "render as indented plain text instead of Markdown")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 1 {
		return blzerr.New(blzerr.InvalidAlias, "usage: blz toc [--plain] <alias>")
	}
	stored, err := st.Load(rest[0])
	if err != nil {
		return err
	}
	if *plain {
		fmt.Print(render.PlainText(stored.Parsed.Toc))
		return nil
	}
	fmt.Print(render.TOC(stored.Parsed.Toc))
	return nil
}

func cmdMap(args []string, st *store.Store) error {
	if len(args) < 1 {
		return blzerr.New(blzerr.InvalidAlias, "usage: blz map <alias>")
	}
	stored, err := st.Load(args[0])
	if err != nil {
		return err
	}
	return printJSON(render.Map(stored.Parsed.Toc))
}

// validateResult is one source's outcome from cmdValidate.
type validateResult struct {
	Alias string   `json:"alias"`
	OK    bool     `json:"ok"`
	Issues []string `json:"issues,omitempty"`
}

func cmdValidate(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	all := fs.Bool("all", false, "validate every registered source")
	fs.Parse(args)
	rest := fs.Args()

	var aliases []string
	if *all {
		list, err := st.List()
		if err != nil {
			return err
		}
		aliases = list
	} else {
		if len(rest) < 1 {
			return blzerr.New(blzerr.InvalidAlias, "usage: blz validate <alias>|--all")
		}
		aliases = rest
	}

	results := make([]validateResult, 0, len(aliases))
	for _, alias := range aliases {
		results = append(results, validateOne(st, alias))
	}
	return printJSON(results)
}

// validateOne recomputes the raw checksum, compares the parsed line map's
// total with the recorded totalLines, and reopens the index: the ways a
// source's on-disk state can drift from its recorded metadata (a
// hand-edited file, a half-finished manual restore from .archive/).
func validateOne(st *store.Store, alias string) validateResult {
	res := validateResult{Alias: alias, OK: true}
	stored, err := st.Load(alias)
	if err != nil {
		res.OK = false
		res.Issues = append(res.Issues, err.Error())
		return res
	}
	raw, err := st.LoadRaw(alias)
	if err != nil {
		res.OK = false
		res.Issues = append(res.Issues, err.Error())
		return res
	}
	if got := fetch.Checksum(raw); got != stored.Metadata.Checksum {
		res.OK = false
		res.Issues = append(res.Issues, fmt.Sprintf("checksum mismatch: recorded %s, recomputed %s", stored.Metadata.Checksum, got))
	}
	if stored.Parsed.LineMap == nil || stored.Parsed.LineMap.TotalLines != stored.Metadata.TotalLines {
		res.OK = false
		res.Issues = append(res.Issues, "totalLines metadata disagrees with parsed line map")
	}
	idx, err := st.OpenIndex(alias)
	if err != nil {
		res.OK = false
		res.Issues = append(res.Issues, "index: "+err.Error())
	} else {
		idx.Close()
	}
	return res
}

// statsEntry is one source's row in cmdStats's output.
type statsEntry struct {
	Alias         string `json:"alias"`
	Variant       string `json:"variant"`
	TotalLines    int    `json:"totalLines"`
	HeadingsCount int    `json:"headingsCount"`
	FetchedAt     string `json:"fetchedAt"`
	Checksum      string `json:"checksum"`
}

func cmdStats(args []string, st *store.Store) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	all := fs.Bool("all", false, "report every registered source")
	fs.Parse(args)
	rest := fs.Args()

	var aliases []string
	if *all {
		list, err := st.List()
		if err != nil {
			return err
		}
		aliases = list
	} else {
		if len(rest) < 1 {
			return blzerr.New(blzerr.InvalidAlias, "usage: blz stats <alias>|--all")
		}
		aliases = rest
	}

	entries := make([]statsEntry, 0, len(aliases))
	for _, alias := range aliases {
		stored, err := st.Load(alias)
		if err != nil {
			continue
		}
		entries = append(entries, statsEntry{
			Alias:         alias,
			Variant:       string(stored.Metadata.Variant),
			TotalLines:    stored.Metadata.TotalLines,
			HeadingsCount: stored.Metadata.HeadingsCount,
			FetchedAt:     stored.Metadata.FetchedAt,
			Checksum:      stored.Metadata.Checksum,
		})
	}
	return printJSON(entries)
}

func cmdHistory(args []string, st *store.Store) error {
	if len(args) < 1 {
		return blzerr.New(blzerr.InvalidAlias, "usage: blz history <alias>")
	}
	gens, err := st.History(args[0])
	if err != nil {
		return err
	}
	return printJSON(gens)
}

func clientFromConfig(cfg config.Config) *fetch.Client {
	return &fetch.Client{
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       3,
		PerRequestTimeout: cfg.FetchTimeout,
		MaxConcurrent:     cfg.MaxConcurrentOps,
		AllowNonEnglish:   cfg.AllowNonEnglish,
	}
}

func variantFromName(name string) docmodel.Variant {
	switch name {
	case "llms-full.txt":
		return docmodel.VariantLlmsFull
	case "llms.txt":
		return docmodel.VariantLlms
	default:
		return docmodel.VariantOther
	}
}

func defaultRegistryPath() string {
	home, _ := os.UserHomeDir()
	return home + "/.blz/registry.yaml"
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func parseContextFlag(s string) (retrieve.ContextMode, error) {
	switch {
	case s == "" || s == "none":
		return retrieve.NoneContext, nil
	case s == "all":
		return retrieve.AllContext(0), nil
	case hasPrefix(s, "all:"):
		n, err := parseIntSuffix(s, "all:")
		if err != nil {
			return retrieve.ContextMode{}, err
		}
		return retrieve.AllContext(n), nil
	case hasPrefix(s, "symmetric:"):
		n, err := parseIntSuffix(s, "symmetric:")
		if err != nil {
			return retrieve.ContextMode{}, err
		}
		return retrieve.SymmetricContext(n), nil
	case hasPrefix(s, "asymmetric:"):
		return parseAsymmetric(s[len("asymmetric:"):])
	default:
		return retrieve.ContextMode{}, blzerr.New(blzerr.InvalidCitation, "unrecognized --context value: "+s)
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func parseIntSuffix(s, prefix string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s[len(prefix):], "%d", &n)
	if err != nil {
		return 0, blzerr.New(blzerr.InvalidCitation, "invalid context value: "+s)
	}
	return n, nil
}

func parseAsymmetric(rest string) (retrieve.ContextMode, error) {
	var b, a int
	if _, err := fmt.Sscanf(rest, "%d,%d", &b, &a); err != nil {
		return retrieve.ContextMode{}, blzerr.New(blzerr.InvalidCitation, "invalid asymmetric context, want B,A")
	}
	return retrieve.AsymmetricContext(b, a), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
