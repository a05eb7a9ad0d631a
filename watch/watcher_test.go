package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvamed/ontoforge/builder"
)

const subsystemBatch = `{
	"entities": [
		{"kind": "subsystem", "label": "Cooling", "confidence": 0.9, "parent_hint": "LINAC"}
	]
}`

// collector is a Handler that records every batch it receives.
type collector struct {
	mu      sync.Mutex
	batches []builder.Batch
	paths   []string
	ch      chan struct{}
}

func newCollector() *collector {
	return &collector{ch: make(chan struct{}, 16)}
}

func (c *collector) handle(_ context.Context, path string, batch builder.Batch) error {
	c.mu.Lock()
	c.batches = append(c.batches, batch)
	c.paths = append(c.paths, path)
	c.mu.Unlock()
	c.ch <- struct{}{}
	return nil
}

func (c *collector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func TestWatcherIngestsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	col := newCollector()

	w, err := New(dir, 20*time.Millisecond, col.handle, nil)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	path := filepath.Join(dir, "pass1.json")
	require.NoError(t, os.WriteFile(path, []byte(subsystemBatch), 0644))

	col.wait(t)

	col.mu.Lock()
	defer col.mu.Unlock()
	require.Len(t, col.batches, 1)
	assert.Equal(t, "Cooling", col.batches[0].Entities[0].Label)
	assert.Equal(t, path, col.paths[0])
}

func TestWatcherProcessesExistingFilesOnStart(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pending.json"), []byte(subsystemBatch), 0644))

	col := newCollector()
	w, err := New(dir, 20*time.Millisecond, col.handle, nil)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Start(context.Background()))
	col.wait(t)
	assert.Equal(t, 1, col.count())
}

func TestWatcherIgnoresNonBatchFiles(t *testing.T) {
	dir := t.TempDir()
	col := newCollector()

	w, err := New(dir, 20*time.Millisecond, col.handle, nil)
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("scratch"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pass.json"), []byte(subsystemBatch), 0644))

	col.wait(t)
	assert.Equal(t, 1, col.count())
}

func TestWatcherSkipsMalformedFileAndKeepsRunning(t *testing.T) {
	dir := t.TempDir()
	col := newCollector()

	w, err := New(dir, 20*time.Millisecond, col.handle, nil)
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(subsystemBatch), 0644))

	col.wait(t)
	assert.Equal(t, 1, col.count())
}

func TestWatcherRequiresExistingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), time.Millisecond, newCollector().handle, nil)
	require.Error(t, err)
}

func TestWatcherRequiresHandler(t *testing.T) {
	_, err := New(t.TempDir(), time.Millisecond, nil, nil)
	require.Error(t, err)
}
