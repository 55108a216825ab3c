package indexer

// The indexer runs the two-phase pipeline:
//
//  1. Scan: every collected file is read once and scanned for declarations
//     and instantiation-shaped sites. Files are independent, so this fans
//     out across workers. Results land in a slot per file, never in
//     completion order.
//  2. Resolve: the declared names of all files form a frozen universe. Sites
//     whose type is in the universe become instantiated-by edges.
//
// The merged index is re-sorted before it is validated and written, so
// worker scheduling can never change the output bytes.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/collector"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/config"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/extractor"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/facts"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/validator"
)

// Indexer builds the module index for one repository.
type Indexer struct {
	// Config is loaded from rtl_inventory.yaml when nil
	Config *config.Config

	// Logger receives skip warnings and debug traces (slog.Default when nil)
	Logger *slog.Logger

	// Progress prints one line per scanned file to Out
	Progress bool

	// Trace adds per-file declaration summaries to progress lines
	Trace bool

	// Out receives progress output (os.Stdout when nil)
	Out io.Writer

	// Timing output (JSONL)
	Timing     bool
	TimingPath string

	// Optional extractor factory (for tests)
	extractorFactory func() FactsExtractor

	// Optional cache version override (for tests)
	cacheVersionOverride string
}

// FactsExtractor abstracts per-file scanning so tests can count calls.
type FactsExtractor interface {
	Extract(path, relPath, dialect string) (extractor.FileFacts, error)
}

// Result is the outcome of one pipeline run.
type Result struct {
	// Index is the merged, sorted, validated module table
	Index facts.Index

	// Files is the number of collected source files
	Files int

	// Skipped lists files dropped from the scan, sorted by path
	Skipped []facts.SkippedFile

	// Edges lists the distinct instantiated-by edges, sorted by child then parent
	Edges []extractor.Edge

	// CacheHits counts files served from the scan cache
	CacheHits int
}

// New creates a new Indexer with default configuration
func New() *Indexer {
	return &Indexer{Config: config.DefaultConfig()}
}

// NewWithConfig creates a new Indexer with the given configuration
func NewWithConfig(cfg *config.Config) *Indexer {
	return &Indexer{Config: cfg}
}

func (idx *Indexer) logger() *slog.Logger {
	if idx.Logger != nil {
		return idx.Logger
	}
	return slog.Default()
}

func (idx *Indexer) out() io.Writer {
	if idx.Out != nil {
		return idx.Out
	}
	return os.Stdout
}

func (idx *Indexer) newExtractor() FactsExtractor {
	if idx.extractorFactory != nil {
		return idx.extractorFactory()
	}
	return extractor.New(extractor.OptionsFromConfig(idx.Config))
}

func (idx *Indexer) workers() int {
	if idx.Config.Scan.Workers > 0 {
		return idx.Config.Scan.Workers
	}
	return runtime.NumCPU()
}

type scanOutcome struct {
	file   string
	facts  extractor.FileFacts
	err    error
	cached bool
}

// Run executes the indexing pipeline over repoRoot. Only setup failures and
// contract violations are returned as errors; unreadable files are reported
// in Result.Skipped.
func (idx *Indexer) Run(ctx context.Context, repoRoot string) (*Result, error) {
	runStart := time.Now()
	log := idx.logger()

	timing, err := openTimingLog(runStart, idx.resolveTimingPath(repoRoot))
	if err != nil {
		log.Warn("timing output disabled", "error", err)
	}
	defer func() {
		if err := timing.Close(); err != nil {
			log.Warn("timing output incomplete", "error", err)
		}
	}()

	if idx.Config == nil {
		cfg, err := config.Load(repoRoot)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		idx.Config = cfg
	}
	for _, pattern := range idx.Config.InvalidExcludes() {
		log.Warn("ignoring invalid exclude pattern", "pattern", pattern)
	}

	// 1. Collect
	stepStart := time.Now()
	fileSet, err := collector.Collect(repoRoot, idx.Config)
	if err != nil {
		return nil, err
	}
	total := fileSet.Len()
	timing.stage(timingEvent{Stage: "collect", Files: total}, stepStart)
	log.Debug("collected sources", "files", total)

	// 2. Phase 1: parallel per-file scan (with optional cache)
	stepStart = time.Now()
	ext := idx.newExtractor()
	cache := idx.openCache(repoRoot)
	var progressMu sync.Mutex
	progress := 0

	outcomes := make([]scanOutcome, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers())
	slot := 0
	for f := range fileSet.All() {
		i := slot
		slot++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileStart := time.Now()
			o := idx.scanFile(ext, cache, f)
			fileDuration := time.Since(fileStart)

			status := "scanned"
			switch {
			case o.err != nil:
				status = "skipped"
			case o.cached:
				status = "cache_hit"
			}
			outcomes[i] = o
			timing.scanned(f.RelPath, status, o.facts, fileStart, fileDuration)
			if idx.Progress {
				idx.emitProgress(&progressMu, &progress, total, f.RelPath, o, status, fileDuration)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scanning files: %w", err)
	}
	if cache != nil {
		if err := cache.Save(); err != nil {
			log.Warn("scan cache save failed", "error", err)
		}
	}

	result := &Result{Files: total, Skipped: []facts.SkippedFile{}}
	scanned := make([]extractor.FileFacts, 0, total)
	var sites int
	for _, o := range outcomes {
		if o.err != nil {
			log.Warn("skipping file", "file", o.file, "error", o.err)
			result.Skipped = append(result.Skipped, facts.SkippedFile{File: o.file, Reason: o.err.Error()})
			continue
		}
		if o.cached {
			result.CacheHits++
		}
		sites += len(o.facts.Sites)
		scanned = append(scanned, o.facts)
	}
	timing.stage(timingEvent{Stage: "scan", Files: len(scanned), Sites: sites}, stepStart)

	// 3. Phase 2: resolve sites against the frozen name universe
	stepStart = time.Now()
	universe := BuildUniverse(scanned)
	instantiatedBy, edges := resolveEdges(scanned, universe)
	result.Edges = edges
	timing.stage(timingEvent{Stage: "resolve", Modules: len(universe), Edges: len(edges)}, stepStart)

	// 4. Merge and validate
	stepStart = time.Now()
	result.Index = facts.BuildIndex(scanned, instantiatedBy)
	v, err := validator.New()
	if err != nil {
		return nil, fmt.Errorf("initialize index validator: %w", err)
	}
	if err := v.ValidateIndex(result.Index); err != nil {
		return nil, fmt.Errorf("index contract violation: %w", err)
	}
	timing.stage(timingEvent{Stage: "build", Modules: result.Index.ModulesTotal}, stepStart)

	timing.stage(timingEvent{
		Stage:   "total",
		Files:   result.Files,
		Modules: result.Index.ModulesTotal,
		Edges:   len(result.Edges),
	}, runStart)
	log.Debug("index built",
		slog.Int("files", result.Files),
		slog.Int("modules", result.Index.ModulesTotal),
		slog.Int("edges", len(result.Edges)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("cache_hits", result.CacheHits),
	)
	return result, nil
}

func (idx *Indexer) scanFile(ext FactsExtractor, cache *scanCache, f collector.SourceFile) scanOutcome {
	o := idx.scanSource(ext, cache, f)
	o.file = f.RelPath
	return o
}

func (idx *Indexer) scanSource(ext FactsExtractor, cache *scanCache, f collector.SourceFile) scanOutcome {
	var contentHash string
	if cache != nil {
		h, err := hashFile(f.Path)
		if err != nil {
			return scanOutcome{err: fmt.Errorf("hashing file: %w", err)}
		}
		contentHash = h
		if ff, ok, err := cache.Get(f.RelPath, contentHash); err == nil && ok {
			// The entry is keyed by path and content; the dialect comes from
			// this run's collection.
			ff.File, ff.Dialect = f.RelPath, f.Dialect
			return scanOutcome{facts: ff, cached: true}
		} else if err != nil {
			idx.logger().Warn("scan cache read failed", "file", f.RelPath, "error", err)
		}
	}

	ff, err := ext.Extract(f.Path, f.RelPath, f.Dialect)
	if err != nil {
		return scanOutcome{err: err}
	}
	if cache != nil {
		if err := cache.Put(f.RelPath, contentHash, ff); err != nil {
			idx.logger().Warn("scan cache write failed", "file", f.RelPath, "error", err)
		}
	}
	return scanOutcome{facts: ff}
}

// BuildUniverse collects every declared module name across files.
func BuildUniverse(files []extractor.FileFacts) extractor.NameSet {
	universe := make(extractor.NameSet)
	for _, f := range files {
		for _, d := range f.Declarations {
			universe[d.Name] = struct{}{}
		}
	}
	return universe
}

func resolveEdges(files []extractor.FileFacts, universe extractor.Universe) (map[string]map[string]bool, []extractor.Edge) {
	instantiatedBy := make(map[string]map[string]bool)
	edges := []extractor.Edge{}
	for _, f := range files {
		for _, e := range extractor.ResolveInstantiations(f.Sites, universe) {
			parents := instantiatedBy[e.Child]
			if parents == nil {
				parents = make(map[string]bool)
				instantiatedBy[e.Child] = parents
			}
			if parents[e.Parent] {
				continue
			}
			parents[e.Parent] = true
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Child != edges[j].Child {
			return edges[i].Child < edges[j].Child
		}
		return edges[i].Parent < edges[j].Parent
	})
	return instantiatedBy, edges
}

// WriteOutputs writes the tabular and structured index files configured in
// Outputs and returns their paths. Failure here is a setup error.
func WriteOutputs(repoRoot string, cfg *config.Config, index facts.Index) (csvPath, jsonPath string, err error) {
	csvPath = config.ResolvePath(repoRoot, cfg.Outputs.IndexCSV)
	jsonPath = config.ResolvePath(repoRoot, cfg.Outputs.IndexJSON)

	if err := facts.WriteFileAtomic(csvPath, func(w io.Writer) error { return facts.WriteCSV(w, index) }); err != nil {
		return "", "", fmt.Errorf("write %s: %w", csvPath, err)
	}
	if err := facts.WriteFileAtomic(jsonPath, func(w io.Writer) error { return facts.WriteJSON(w, index) }); err != nil {
		return "", "", fmt.Errorf("write %s: %w", jsonPath, err)
	}
	return csvPath, jsonPath, nil
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.2fm", d.Minutes())
	default:
		return fmt.Sprintf("%.2fh", d.Hours())
	}
}

func (idx *Indexer) emitProgress(mu *sync.Mutex, progress *int, total int, file string, o scanOutcome, status string, duration time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	w := idx.out()
	*progress = *progress + 1
	fmt.Fprintf(w, "  [%d/%d] %s (%s, %s)\n", *progress, total, file, status, formatDuration(duration))
	if !idx.Trace || o.err != nil {
		return
	}
	var names, types []string
	for _, d := range o.facts.Declarations {
		names = append(names, d.Name)
	}
	for _, s := range o.facts.Sites {
		types = append(types, s.Type)
	}
	fmt.Fprintf(w, "    facts: modules=%d sites=%d\n", len(o.facts.Declarations), len(o.facts.Sites))
	if list := summarizeList(names, 6); list != "" {
		fmt.Fprintf(w, "    modules: %s\n", list)
	}
	if list := summarizeList(types, 4); list != "" {
		fmt.Fprintf(w, "    sites: %s\n", list)
	}
}

func summarizeList(items []string, max int) string {
	if len(items) == 0 {
		return ""
	}
	sort.Strings(items)
	if len(items) > max {
		return fmt.Sprintf("%s, ... (+%d more)", strings.Join(items[:max], ", "), len(items)-max)
	}
	return strings.Join(items, ", ")
}
