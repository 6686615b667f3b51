package ingestion

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Reports(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 30)

	tracker.Start()
	tracker.Upserted(10)
	tracker.Skipped(10)
	tracker.Upserted(10)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "Ingested 10/30 chunks (33.3%), 0 skipped")
	assert.Contains(t, output, "Ingested 20/30 chunks (100.0%), 10 skipped")
	assert.Contains(t, output, "\n")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10)

	tracker.Upserted(5)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_Concurrent(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	tracker := NewProgressTracker(&lockedWriter{mu: &mu, w: &buf}, 100)
	tracker.Start()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Upserted(10)
		}()
	}
	wg.Wait()
	tracker.Finish()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buf.String(), "Ingested 100/100 chunks")
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
