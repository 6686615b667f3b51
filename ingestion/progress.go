package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports chunk progress of an ingestion run to a writer.
// It is safe for concurrent use by batch workers.
type ProgressTracker struct {
	writer    io.Writer
	total     int
	done      int
	skipped   int
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

// NewProgressTracker creates a tracker for total chunks.
func NewProgressTracker(writer io.Writer, total int) *ProgressTracker {
	return &ProgressTracker{
		writer: writer,
		total:  total,
	}
}

// Start begins tracking.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.done = 0
	p.skipped = 0
}

// Upserted records n chunks written.
func (p *ProgressTracker) Upserted(n int) {
	p.advance(n, 0)
}

// Skipped records n chunks dropped with their batch.
func (p *ProgressTracker) Skipped(n int) {
	p.advance(0, n)
}

func (p *ProgressTracker) advance(done, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.done += done
	p.skipped += skipped
	p.report()
}

// Finish prints the final line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report must be called with the lock held.
func (p *ProgressTracker) report() {
	handled := p.done + p.skipped
	percentage := 0.0
	if p.total > 0 {
		percentage = float64(handled) / float64(p.total) * 100.0
	}
	rate := float64(p.done) / time.Since(p.startTime).Seconds()

	fmt.Fprintf(p.writer, "\rIngested %d/%d chunks (%.1f%%), %d skipped - %.1f chunks/s",
		p.done, p.total, percentage, p.skipped, rate)
}
