package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Publisher emits state-changed notifications to the sync worker.
type Publisher interface {
	PublishStateChanged(ctx context.Context, revision int64) error
}

// CoordinatorConfig holds configuration for the sync coordinator.
type CoordinatorConfig struct {
	// Debounce is how long the state must stay quiet before a changed
	// revision is announced (default: 2s).
	Debounce time.Duration

	// ResyncInterval is how often the current revision is re-announced so a
	// lost message cannot strand the remote copy (default: 1h).
	ResyncInterval time.Duration
}

// DefaultCoordinatorConfig returns sensible defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Debounce:       2 * time.Second,
		ResyncInterval: 1 * time.Hour,
	}
}

// Status describes the coordinator's view of synchronization for the API.
type Status struct {
	Pending      bool      `json:"pending"`
	Revision     int64     `json:"revision"`
	LastAttempt  time.Time `json:"lastAttempt,omitzero"`
	LastSuccess  time.Time `json:"lastSuccess,omitzero"`
	LastError    string    `json:"lastError,omitempty"`
	PublishCount int64     `json:"publishCount"`
}

// Coordinator debounces store change notifications and announces the latest
// revision to the sync worker. Bursts of edits collapse into one announcement.
type Coordinator struct {
	publisher Publisher
	config    CoordinatorConfig
	debouncer *Debouncer

	// Lifecycle management
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	revision int64
	pending  bool
	status   Status
}

// NewCoordinator creates a coordinator. publisher may be nil, in which case
// changes are tracked but never announced.
func NewCoordinator(publisher Publisher, config CoordinatorConfig) *Coordinator {
	c := &Coordinator{
		publisher: publisher,
		config:    config,
	}
	c.debouncer = NewDebouncer(config.Debounce, c.flush)
	return c
}

// Start begins the periodic resync loop. Returns an error if already running.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("sync coordinator is already running")
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	go c.runLoop(ctx)

	slog.InfoContext(ctx, "Sync coordinator started",
		"debounce", c.config.Debounce,
		"resync_interval", c.config.ResyncInterval)

	return nil
}

// Stop gracefully stops the coordinator, flushing any pending announcement.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.debouncer.Flush()
	close(c.stopCh)

	select {
	case <-c.doneCh:
		slog.InfoContext(ctx, "Sync coordinator stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync coordinator stop timed out")
		return ctx.Err()
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	return nil
}

// IsRunning returns whether the coordinator is currently running.
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// NotifyChanged records a new revision and schedules an announcement.
func (c *Coordinator) NotifyChanged(revision int64) {
	c.mu.Lock()
	c.revision = revision
	c.pending = true
	c.status.Pending = true
	c.status.Revision = revision
	c.mu.Unlock()

	c.debouncer.Trigger()
}

// TriggerNow announces the current revision immediately, bypassing debounce.
func (c *Coordinator) TriggerNow() {
	c.debouncer.Stop()
	c.flush()
}

// Status returns a snapshot of the coordinator state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) runLoop(ctx context.Context) {
	defer close(c.doneCh)

	resyncTicker := time.NewTicker(c.config.ResyncInterval)
	defer resyncTicker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-resyncTicker.C:
			c.flush()
		}
	}
}

// flush announces the current revision to the worker.
func (c *Coordinator) flush() {
	c.mu.Lock()
	revision := c.revision
	hadPending := c.pending
	c.mu.Unlock()

	if revision == 0 && !hadPending {
		return
	}
	if c.publisher == nil {
		c.mu.Lock()
		c.pending = false
		c.status.Pending = false
		c.mu.Unlock()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	err := c.publisher.PublishStateChanged(ctx, revision)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.LastAttempt = now
	if err != nil {
		c.status.LastError = err.Error()
		slog.ErrorContext(ctx, "Failed to announce state change",
			"revision", revision, "error", err)
		return
	}
	c.pending = false
	c.status.Pending = false
	c.status.LastSuccess = now
	c.status.LastError = ""
	c.status.PublishCount++
}
