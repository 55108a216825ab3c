package indexer

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/extractor"
)

func readTimingEvents(t *testing.T, raw []byte) []timingEvent {
	t.Helper()
	var events []timingEvent
	for _, line := range bytes.Split(bytes.TrimSpace(raw), []byte("\n")) {
		var ev timingEvent
		require.NoError(t, json.Unmarshal(line, &ev))
		events = append(events, ev)
	}
	return events
}

func TestTimingJSONLWritten(t *testing.T) {
	t.Setenv(timingEnv, "")
	dir := t.TempDir()
	writeRTL(t, dir, "hw/rtl/VX_cluster.sv", clusterSrc)
	writeRTL(t, dir, "hw/rtl/VX_socket.sv", socketSrc)

	timingPath := filepath.Join(dir, "out", "timing.jsonl")
	idx := NewWithConfig(defaultTestConfig(false))
	idx.Timing = true
	idx.TimingPath = timingPath
	runIndexerForTest(t, idx, dir)

	raw, err := os.ReadFile(timingPath)
	require.NoError(t, err)

	stages := map[string]timingEvent{}
	files := map[string]timingEvent{}
	for _, ev := range readTimingEvents(t, raw) {
		if ev.File != "" {
			files[ev.File] = ev
			continue
		}
		stages[ev.Stage] = ev
	}

	require.Len(t, files, 2)
	cluster := files["hw/rtl/VX_cluster.sv"]
	assert.Equal(t, "scan", cluster.Stage)
	assert.Equal(t, "scanned", cluster.Status)
	assert.Equal(t, 1, cluster.Modules)
	assert.Equal(t, 1, cluster.Sites)

	for _, stage := range []string{"collect", "scan", "resolve", "build", "total"} {
		assert.Contains(t, stages, stage)
	}
	assert.Equal(t, 2, stages["collect"].Files)
	assert.Equal(t, 1, stages["resolve"].Edges)
	assert.Equal(t, 2, stages["build"].Modules)
	assert.Equal(t, 2, stages["total"].Modules)
	assert.GreaterOrEqual(t, stages["total"].DurationMS, stages["scan"].DurationMS)
}

func TestTimingLogRecordsOffsets(t *testing.T) {
	origin := time.Now()
	var buf bytes.Buffer
	l := newTimingLog(origin, &buf)

	ff := extractor.FileFacts{
		Declarations: []extractor.Declaration{{Name: "VX_a", Line: 1}, {Name: "VX_b", Line: 5}},
		Sites:        []extractor.Site{{Enclosing: "VX_a", Type: "VX_b", Instance: "b_i", Line: 2}},
	}
	l.scanned("hw/rtl/VX_a.sv", "cache_hit", ff, origin.Add(2*time.Millisecond), 3*time.Millisecond)

	events := readTimingEvents(t, buf.Bytes())
	require.Len(t, events, 1)
	assert.Equal(t, timingEvent{
		Stage:      "scan",
		File:       "hw/rtl/VX_a.sv",
		Status:     "cache_hit",
		Modules:    2,
		Sites:      1,
		StartMS:    2,
		DurationMS: 3,
	}, events[0])
}

func TestTimingPathFromEnv(t *testing.T) {
	t.Setenv(timingEnv, "/tmp/custom.jsonl")
	idx := New()
	assert.Equal(t, "/tmp/custom.jsonl", idx.resolveTimingPath("/repo"))

	t.Setenv(timingEnv, "")
	assert.Equal(t, "", idx.resolveTimingPath("/repo"))
	idx.Timing = true
	assert.Equal(t, filepath.Join("/repo", "timing.jsonl"), idx.resolveTimingPath("/repo"))
}

func TestNilTimingLogIsInert(t *testing.T) {
	l, err := openTimingLog(time.Now(), "")
	require.NoError(t, err)
	assert.Nil(t, l)
	l.stage(timingEvent{Stage: "scan"}, time.Now())
	l.scanned("f.sv", "scanned", extractor.FileFacts{}, time.Now(), 0)
	assert.NoError(t, l.Close())
}
