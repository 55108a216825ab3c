package indexer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/extractor"
)

// timingEnv names a JSONL path that enables timing regardless of flags.
const timingEnv = "RTL_INVENTORY_TIMING"

// timingEvent is one JSONL line. Stage events carry the totals of their
// stage; file events carry what the scan found in that file.
type timingEvent struct {
	Stage      string  `json:"stage"`
	File       string  `json:"file,omitempty"`
	Status     string  `json:"status,omitempty"`
	Files      int     `json:"files,omitempty"`
	Modules    int     `json:"modules,omitempty"`
	Sites      int     `json:"sites,omitempty"`
	Edges      int     `json:"edges,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
}

// timingLog writes timing events as they happen. A nil *timingLog drops
// everything, so callers never branch on whether timing is on.
type timingLog struct {
	origin time.Time
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

func newTimingLog(origin time.Time, w io.Writer) *timingLog {
	return &timingLog{origin: origin, enc: json.NewEncoder(w)}
}

// openTimingLog creates path (and its directory). An empty path yields a
// nil log.
func openTimingLog(origin time.Time, path string) (*timingLog, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("timing dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("timing file: %w", err)
	}
	l := newTimingLog(origin, f)
	l.closer = f
	return l, nil
}

func (l *timingLog) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *timingLog) emit(ev timingEvent, start time.Time, d time.Duration) {
	if l == nil {
		return
	}
	ev.StartMS = millis(start.Sub(l.origin))
	ev.DurationMS = millis(d)
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(ev)
}

// stage closes a pipeline stage that began at start.
func (l *timingLog) stage(ev timingEvent, start time.Time) {
	l.emit(ev, start, time.Since(start))
}

// scanned records one file of the scan stage.
func (l *timingLog) scanned(relPath, status string, ff extractor.FileFacts, start time.Time, d time.Duration) {
	l.emit(timingEvent{
		Stage:   "scan",
		File:    relPath,
		Status:  status,
		Modules: len(ff.Declarations),
		Sites:   len(ff.Sites),
	}, start, d)
}

func millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

func (idx *Indexer) resolveTimingPath(repoRoot string) string {
	if envPath := os.Getenv(timingEnv); envPath != "" {
		return envPath
	}
	if !idx.Timing {
		return ""
	}
	if idx.TimingPath != "" {
		return idx.TimingPath
	}
	return filepath.Join(repoRoot, "timing.jsonl")
}
