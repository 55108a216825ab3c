package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/config"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/extractor"
)

// cacheVersion fingerprints the scanner behaviour a cached entry was produced
// with: the extractor options plus the extension to dialect map. Cached
// entries from a different fingerprint are rescanned.
func cacheVersion(cfg *config.Config) string {
	h := sha256.New()
	io.WriteString(h, extractor.OptionsFromConfig(cfg).Version())
	exts := make([]string, 0, len(cfg.Scan.Extensions))
	for ext := range cfg.Scan.Extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		io.WriteString(h, "\x00"+ext+"="+cfg.Scan.Extensions[ext])
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (idx *Indexer) openCache(repoRoot string) *scanCache {
	if !idx.Config.CacheEnabled() {
		return nil
	}
	version := cacheVersion(idx.Config)
	if idx.cacheVersionOverride != "" {
		version = idx.cacheVersionOverride
	}
	cache := newScanCache(idx.Config.CacheDir(repoRoot), version)
	if err := cache.Load(); err != nil {
		idx.logger().Warn("scan cache disabled", "error", err)
		return nil
	}
	return cache
}

// ClearCache removes the scan cache for the given repo root.
// Returns the cache directory that was targeted.
func ClearCache(repoRoot string, cfg *config.Config) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("clear cache: config is nil")
	}
	dir := cfg.CacheDir(repoRoot)
	if err := newScanCache(dir, cacheVersion(cfg)).Clear(); err != nil {
		return dir, err
	}
	return dir, nil
}
