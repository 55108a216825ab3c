// Package collector enumerates hardware source files under a repository root.
package collector

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/config"
)

// ErrRootNotFound is returned when the scan root does not exist.
var ErrRootNotFound = errors.New("scan root not found")

// SourceFile is one collected source file.
type SourceFile struct {
	// Path is the absolute path on disk
	Path string
	// RelPath is slash-separated and relative to the repo root
	RelPath string
	// Dialect is the language tag derived from the extension
	Dialect string
}

// FileSet is the sorted result of a collection pass.
type FileSet struct {
	files []SourceFile
}

// Len returns the number of collected files.
func (s *FileSet) Len() int {
	return len(s.files)
}

// All yields the files in sorted order. It can be ranged over any number of times.
func (s *FileSet) All() iter.Seq[SourceFile] {
	return func(yield func(SourceFile) bool) {
		for _, f := range s.files {
			if !yield(f) {
				return
			}
		}
	}
}

// Collect walks <repoRoot>/<cfg.Scan.HWDir> and returns every file with a
// recognized dialect extension, sorted by repo-relative path.
func Collect(repoRoot string, cfg *config.Config) (*FileSet, error) {
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, repoRoot)
	}

	hwDir := absRoot
	if cfg.Scan.HWDir != "" && cfg.Scan.HWDir != "." {
		hwDir = config.ResolvePath(absRoot, cfg.Scan.HWDir)
	}
	if info, err := os.Stat(hwDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, hwDir)
	}

	var files []SourceFile
	err = filepath.WalkDir(hwDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subdirectories are skipped, not fatal
			if d != nil && d.IsDir() && path != hwDir {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		dialect := cfg.DialectFor(path)
		if dialect == "" {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if cfg.IsExcluded(rel) {
			return nil
		}
		files = append(files, SourceFile{Path: path, RelPath: rel, Dialect: dialect})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", hwDir, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})
	return &FileSet{files: files}, nil
}
