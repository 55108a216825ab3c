package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultParamWindow is the number of lines, starting at the declaration
// line, searched for parameter declarations.
const DefaultParamWindow = 80

// DefaultMaxFileBytes is the per-file size ceiling for scanning.
const DefaultMaxFileBytes int64 = 8 << 20

// Config is the top-level configuration for rtl-inventory
type Config struct {
	// Scan controls source discovery
	Scan ScanConfig `yaml:"scan"`

	// Extract controls the line heuristics
	Extract ExtractConfig `yaml:"extract"`

	// Classify controls subsystem bucketing
	Classify ClassifyConfig `yaml:"classify"`

	// Outputs lists the generated artifact paths, relative to the repo root
	Outputs OutputConfig `yaml:"outputs"`

	// Cache controls the per-file scan cache
	Cache CacheConfig `yaml:"cache"`

	// Check contains audit rule configuration
	Check CheckConfig `yaml:"check"`
}

// ScanConfig defines which files are collected
type ScanConfig struct {
	// HWDir is the hardware subtree, relative to the repo root
	HWDir string `yaml:"hw_dir"`

	// Extensions maps a file extension (with dot) to its dialect tag
	Extensions map[string]string `yaml:"extensions"`

	// Exclude is a list of doublestar globs, relative to the repo root
	Exclude []string `yaml:"exclude,omitempty"`

	// MaxFileBytes skips files larger than this. Unset means
	// DefaultMaxFileBytes; an explicit 0 removes the ceiling.
	MaxFileBytes *int64 `yaml:"max_file_bytes,omitempty"`

	// Workers limits concurrent file scanning (0 = auto)
	Workers int `yaml:"workers,omitempty"`
}

// ExtractConfig holds the tunable extraction heuristics
type ExtractConfig struct {
	ParamWindow           int      `yaml:"param_window"`
	InstantiationDenylist []string `yaml:"instantiation_denylist"`
}

// ClassifyConfig holds subsystem classification options
type ClassifyConfig struct {
	// RTLRoot is the slash-separated directory holding the subsystem folders
	RTLRoot string `yaml:"rtl_root"`

	// TopCandidatePattern overrides the top-level-candidate regexp
	TopCandidatePattern string `yaml:"top_candidate_pattern,omitempty"`
}

// OutputConfig lists where artifacts are written
type OutputConfig struct {
	IndexCSV  string `yaml:"index_csv"`
	IndexJSON string `yaml:"index_json"`
	ReportMD  string `yaml:"report_md"`
	ReportCSV string `yaml:"report_csv"`
}

// CacheConfig controls incremental scan cache behavior
type CacheConfig struct {
	// Enabled turns on cache usage
	Enabled *bool `yaml:"enabled,omitempty"`

	// Dir is the cache directory (relative to repo root if not absolute)
	Dir string `yaml:"dir,omitempty"`
}

// CheckConfig maps audit rule names to severity: "off", "info", "warning", "error"
type CheckConfig struct {
	Rules map[string]string `yaml:"rules,omitempty"`
}

// DefaultDenylist lists line prefixes that look like instantiations but are not.
func DefaultDenylist() []string {
	return []string{
		"if ", "for ", "while ", "case ",
		"assign ", "always", "initial",
		"wire ", "logic ", "reg ",
		"input ", "output ", "inout ",
		"localparam ", "parameter ",
	}
}

// DefaultExtensions maps the two recognized dialect extensions.
func DefaultExtensions() map[string]string {
	return map[string]string{
		".sv": "sv",
		".v":  "v",
	}
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			HWDir:        "hw",
			Extensions:   DefaultExtensions(),
			Exclude:      []string{},
			MaxFileBytes: Int64Ptr(DefaultMaxFileBytes),
		},
		Extract: ExtractConfig{
			ParamWindow:           DefaultParamWindow,
			InstantiationDenylist: DefaultDenylist(),
		},
		Classify: ClassifyConfig{
			RTLRoot: "hw/rtl",
		},
		Outputs: OutputConfig{
			IndexCSV:  "docs/rtl_modules_index.csv",
			IndexJSON: "docs/rtl_modules_index.json",
			ReportMD:  "docs/rtl_modules_by_subsystem.md",
			ReportCSV: "docs/rtl_modules_by_subsystem.csv",
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     ".rtl_inventory_cache",
		},
		Check: CheckConfig{
			Rules: map[string]string{},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Int64Ptr returns a pointer to v, for optional integer settings.
func Int64Ptr(v int64) *int64 {
	return &v
}

// Load finds and loads the configuration file
// Search order:
//  1. ./rtl_inventory.yaml (current working directory)
//  2. ./.rtl_inventory.yaml (current working directory)
//  3. <rootPath>/rtl_inventory.yaml (if different from cwd)
//  4. ~/.config/rtl_inventory/config.yaml
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "rtl_inventory.yaml"),
		filepath.Join(cwd, ".rtl_inventory.yaml"),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "rtl_inventory.yaml"),
				filepath.Join(rootPath, ".rtl_inventory.yaml"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "rtl_inventory", "config.yaml"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Scan.HWDir == "" {
		c.Scan.HWDir = def.Scan.HWDir
	}
	if len(c.Scan.Extensions) == 0 {
		c.Scan.Extensions = def.Scan.Extensions
	}
	if c.Scan.MaxFileBytes == nil {
		c.Scan.MaxFileBytes = Int64Ptr(DefaultMaxFileBytes)
	} else if *c.Scan.MaxFileBytes < 0 {
		c.Scan.MaxFileBytes = Int64Ptr(0)
	}
	if c.Extract.ParamWindow < 1 {
		c.Extract.ParamWindow = DefaultParamWindow
	}
	if c.Extract.InstantiationDenylist == nil {
		c.Extract.InstantiationDenylist = def.Extract.InstantiationDenylist
	}
	if c.Classify.RTLRoot == "" {
		c.Classify.RTLRoot = def.Classify.RTLRoot
	}
	if c.Outputs.IndexCSV == "" {
		c.Outputs.IndexCSV = def.Outputs.IndexCSV
	}
	if c.Outputs.IndexJSON == "" {
		c.Outputs.IndexJSON = def.Outputs.IndexJSON
	}
	if c.Outputs.ReportMD == "" {
		c.Outputs.ReportMD = def.Outputs.ReportMD
	}
	if c.Outputs.ReportCSV == "" {
		c.Outputs.ReportCSV = def.Outputs.ReportCSV
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = def.Cache.Dir
	}
	if c.Cache.Enabled == nil {
		c.Cache.Enabled = boolPtr(false)
	}
	if c.Check.Rules == nil {
		c.Check.Rules = make(map[string]string)
	}
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CacheEnabled reports whether the per-file scan cache is on.
func (c *Config) CacheEnabled() bool {
	return c != nil && c.Cache.Enabled != nil && *c.Cache.Enabled
}

// FileSizeCeiling is the per-file scan limit in bytes (0 = none).
func (c *Config) FileSizeCeiling() int64 {
	if c == nil || c.Scan.MaxFileBytes == nil {
		return DefaultMaxFileBytes
	}
	return *c.Scan.MaxFileBytes
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Check.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Check.Rules[rule]; ok {
		return severity != "off"
	}
	return true
}
