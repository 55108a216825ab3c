package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/extractor"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/facts"
)

const cacheIndexVersion = 1

type cacheEntry struct {
	ContentHash      string `json:"content_hash"`
	FactsPath        string `json:"facts_path"`
	ExtractorVersion string `json:"extractor_version"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

// scanCache stores per-file scan results keyed by repo-relative path. An
// entry is reused only when both the content hash and the extractor options
// fingerprint match.
type scanCache struct {
	dir              string
	extractorVersion string
	mu               sync.Mutex
	index            cacheIndex
}

func newScanCache(dir, extractorVersion string) *scanCache {
	return &scanCache{
		dir:              dir,
		extractorVersion: extractorVersion,
		index: cacheIndex{
			Version: cacheIndexVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

func (c *scanCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *scanCache) factsPathForFile(relPath string) string {
	h := sha256.Sum256([]byte(relPath))
	return filepath.Join(c.dir, "facts", hex.EncodeToString(h[:])+".json")
}

func (c *scanCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Version != cacheIndexVersion {
		// Reset on version mismatch
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

func (c *scanCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.indexPath(), c.index)
}

func (c *scanCache) Get(relPath, contentHash string) (extractor.FileFacts, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[relPath]
	c.mu.Unlock()
	if !ok || entry.ContentHash != contentHash || entry.ExtractorVersion != c.extractorVersion {
		return extractor.FileFacts{}, false, nil
	}

	data, err := os.ReadFile(entry.FactsPath)
	if err != nil {
		return extractor.FileFacts{}, false, fmt.Errorf("read cached facts: %w", err)
	}
	var ff extractor.FileFacts
	if err := json.Unmarshal(data, &ff); err != nil {
		return extractor.FileFacts{}, false, fmt.Errorf("parse cached facts: %w", err)
	}
	return ff, true, nil
}

func (c *scanCache) Put(relPath, contentHash string, ff extractor.FileFacts) error {
	factsPath := c.factsPathForFile(relPath)
	if err := writeJSONAtomic(factsPath, ff); err != nil {
		return err
	}

	c.mu.Lock()
	c.index.Entries[relPath] = cacheEntry{
		ContentHash:      contentHash,
		FactsPath:        factsPath,
		ExtractorVersion: c.extractorVersion,
	}
	c.mu.Unlock()
	return nil
}

// Clear drops every cached entry on disk.
func (c *scanCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = cacheIndex{Version: cacheIndexVersion, Entries: make(map[string]cacheEntry)}
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func writeJSONAtomic(path string, v any) error {
	return facts.WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
