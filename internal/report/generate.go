package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/classify"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/config"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/facts"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/gitmeta"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/validator"
)

// Options tune one report run.
type Options struct {
	// IndexPath overrides cfg.Outputs.IndexJSON
	IndexPath string
	// Subsystems restricts rendering to these buckets
	Subsystems []string
	// Project names the design in the header (repo directory name when empty)
	Project string
	// Metadata skips the git query when set
	Metadata *gitmeta.Metadata
	Logger   *slog.Logger
}

// Summary describes what a report run wrote.
type Summary struct {
	Records int
	MDPath  string
	CSVPath string
	Counts  []SubsystemCount
}

// Generate loads the structured index from disk, validates it, and writes
// both report artifacts.
func Generate(ctx context.Context, repoRoot string, cfg *config.Config, opts Options) (*Summary, error) {
	indexRel := cfg.Outputs.IndexJSON
	if opts.IndexPath != "" {
		indexRel = opts.IndexPath
	}
	idx, err := validator.LoadIndex(config.ResolvePath(repoRoot, indexRel))
	if err != nil {
		return nil, err
	}
	opts.IndexPath = indexRel
	return GenerateFromIndex(ctx, repoRoot, cfg, idx, opts)
}

// GenerateFromIndex classifies an in-memory index and writes both report
// artifacts.
func GenerateFromIndex(ctx context.Context, repoRoot string, cfg *config.Config, idx facts.Index, opts Options) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.IndexPath == "" {
		opts.IndexPath = cfg.Outputs.IndexJSON
	}

	v, err := validator.New()
	if err != nil {
		return nil, fmt.Errorf("initialize validator: %w", err)
	}
	if err := v.ValidateIndex(idx); err != nil {
		return nil, fmt.Errorf("index contract violation: %w", err)
	}

	c, err := classify.New(cfg.Classify.RTLRoot, cfg.Classify.TopCandidatePattern)
	if err != nil {
		return nil, err
	}
	mods, err := FilterSubsystems(c.ClassifyIndex(idx), opts.Subsystems)
	if err != nil {
		return nil, err
	}
	if err := v.ValidateReportRows(mods); err != nil {
		return nil, fmt.Errorf("report contract violation: %w", err)
	}

	meta := opts.Metadata
	if meta == nil {
		m := gitmeta.Describe(ctx, repoRoot, logger)
		meta = &m
	}
	project := opts.Project
	if project == "" {
		if abs, err := filepath.Abs(repoRoot); err == nil {
			project = filepath.Base(abs)
		}
	}
	header := Header{
		Project:     project,
		Revision:    meta.Revision,
		SourceIndex: filepath.ToSlash(opts.IndexPath),
		Submodules:  meta.Submodules,
	}

	summary := &Summary{
		Records: len(mods),
		MDPath:  config.ResolvePath(repoRoot, cfg.Outputs.ReportMD),
		CSVPath: config.ResolvePath(repoRoot, cfg.Outputs.ReportCSV),
		Counts:  Counts(mods),
	}
	if err := facts.WriteFileAtomic(summary.CSVPath, func(w io.Writer) error { return WriteCSV(w, mods) }); err != nil {
		return nil, fmt.Errorf("write %s: %w", summary.CSVPath, err)
	}
	if err := facts.WriteFileAtomic(summary.MDPath, func(w io.Writer) error { return RenderMarkdown(w, mods, header) }); err != nil {
		return nil, fmt.Errorf("write %s: %w", summary.MDPath, err)
	}
	logger.Debug("report written", "records", summary.Records, "md", summary.MDPath, "csv", summary.CSVPath)
	return summary, nil
}
