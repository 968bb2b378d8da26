package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 20

// Progress renders a single status line for a batch of source loads.
type Progress struct {
	startTime time.Time
	output    io.Writer
	total     int
	completed int
	failed    int
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a tracker for total loads writing to stderr when enabled.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// Update records the completion of a load.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.failed = failed
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback returns a ProgressFunc for Config.OnProgress.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Print rewrites the status line.
func (p *Progress) Print() {
	p.mu.RLock()
	completed, total, failed := p.completed, p.total, p.failed
	elapsed := time.Since(p.startTime)
	p.mu.RUnlock()

	filled := 0
	if total > 0 {
		filled = completed * barWidth / total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	line := fmt.Sprintf("\r[%s] %d/%d sources", bar, completed, total)
	if failed > 0 {
		line += fmt.Sprintf(", %d unavailable", failed)
	}
	line += " (" + formatDuration(elapsed) + ")"

	// Pad to clear previous line content
	line += "          "

	fmt.Fprint(p.output, line)
}

// Done ends the status line.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary describes the finished batch.
func (p *Progress) Summary() string {
	p.mu.RLock()
	completed, total, failed := p.completed, p.total, p.failed
	elapsed := time.Since(p.startTime)
	p.mu.RUnlock()

	return fmt.Sprintf("Loaded %d/%d sources (%d unavailable) in %s",
		completed-failed, total, failed, formatDuration(elapsed))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
