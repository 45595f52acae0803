package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// TaskProgress reports pipeline task completion as tasks finish.
type TaskProgress struct {
	total     int
	current   int
	startTime time.Time
	mu        sync.Mutex

	successCount int
	failureCount int
	skipCount    int
	cancelCount  int
}

// NewTaskProgress creates a tracker for total tasks.
func NewTaskProgress(total int) *TaskProgress {
	return &TaskProgress{
		total:     total,
		startTime: time.Now(),
	}
}

// Done records one finished task.
func (p *TaskProgress) Done(task string, err error, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	if err == nil {
		p.successCount++
		fmt.Fprintf(Output, "%s [%d/%d] %s %s\n",
			ColorSuccess("✓"), p.current, p.total, task, ColorDim(FormatDuration(duration)))
		return
	}
	p.failureCount++
	fmt.Fprintf(Output, "%s [%d/%d] %s\n", ColorError("✗"), p.current, p.total, task)
}

// Skipped records tasks that never ran.
func (p *TaskProgress) Skipped(tasks ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, task := range tasks {
		p.current++
		p.skipCount++
		fmt.Fprintf(Output, "%s [%d/%d] %s %s\n",
			ColorWarning("-"), p.current, p.total, task, ColorDim("skipped"))
	}
}

// Cancelled records tasks that never ran because the run was interrupted.
func (p *TaskProgress) Cancelled(tasks ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, task := range tasks {
		p.current++
		p.cancelCount++
		fmt.Fprintf(Output, "%s [%d/%d] %s %s\n",
			ColorError("-"), p.current, p.total, task, ColorDim("cancelled"))
	}
}

// Finish prints the totals.
func (p *TaskProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(Output, "\n%s Pipeline finished in %s\n",
		ColorBold("►"),
		FormatDuration(time.Since(p.startTime)),
	)
	fmt.Fprintf(Output, "  %s %d succeeded\n", ColorSuccess("✓"), p.successCount)
	if p.failureCount > 0 {
		fmt.Fprintf(Output, "  %s %d failed\n", ColorError("✗"), p.failureCount)
	}
	if p.skipCount > 0 {
		fmt.Fprintf(Output, "  %s %d skipped\n", ColorWarning("-"), p.skipCount)
	}
	if p.cancelCount > 0 {
		fmt.Fprintf(Output, "  %s %d cancelled\n", ColorError("-"), p.cancelCount)
	}
}

// Spinner represents an animated spinner for long operations
type Spinner struct {
	frames  []string
	current int
	message string
	stop    chan bool
	stopped bool
	mu      sync.Mutex
}

// NewSpinner creates a new spinner
func NewSpinner(message string) *Spinner {
	return &Spinner{
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message: message,
		stop:    make(chan bool),
	}
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				if !s.stopped {
					fmt.Fprintf(Output, "\r%s %s %s",
						ColorProgress(s.frames[s.current]),
						s.message,
						strings.Repeat(" ", 20),
					)
					s.current = (s.current + 1) % len(s.frames)
				}
				s.mu.Unlock()
			}
		}
	}()
}

// Stop stops the spinner and prints the final status.
func (s *Spinner) Stop(success bool, message string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stop)

	fmt.Fprint(Output, "\r\033[K")
	if success {
		fmt.Fprintf(Output, "%s %s\n", ColorSuccess("✓"), message)
	} else {
		fmt.Fprintf(Output, "%s %s\n", ColorError("✗"), message)
	}
}

// UpdateMessage updates the spinner message
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}
