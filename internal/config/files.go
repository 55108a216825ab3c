package config

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DialectFor returns the dialect tag for a file path, or "" if the extension
// is not a recognized source extension. Matching is case-sensitive: `.SV`
// is not `.sv`.
func (c *Config) DialectFor(path string) string {
	return c.Scan.Extensions[filepath.Ext(path)]
}

// IsExcluded checks a slash-separated, repo-relative path against the
// exclude globs. Invalid patterns never match.
func (c *Config) IsExcluded(relPath string) bool {
	for _, pattern := range c.Scan.Exclude {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
		// Bare file patterns also match the base name
		if !strings.Contains(pattern, "/") {
			if matched, err := doublestar.Match(pattern, filepath.Base(relPath)); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// InvalidExcludes returns the exclude patterns doublestar cannot compile.
func (c *Config) InvalidExcludes() []string {
	var bad []string
	for _, pattern := range c.Scan.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			bad = append(bad, pattern)
		}
	}
	return bad
}

// ResolvePath makes a configured path absolute against the repo root.
func ResolvePath(repoRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}

// CacheDir returns the absolute cache directory for a repo root.
func (c *Config) CacheDir(repoRoot string) string {
	dir := c.Cache.Dir
	if dir == "" {
		dir = ".rtl_inventory_cache"
	}
	return ResolvePath(repoRoot, dir)
}
