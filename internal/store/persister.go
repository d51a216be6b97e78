package store

// persister.go moves snapshot writes off the mutation path.
//
// The Persister holds a single pending slot. Every mutation overwrites the
// slot with the newest snapshot and wakes the writer goroutine, so a burst
// of mutations collapses into one save and saves land in mutation order.
// On shutdown the writer drains the slot before exiting.

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/datatable/internal/core"
)

// DefaultSaveTimeout bounds a single Save when none is configured.
const DefaultSaveTimeout = 10 * time.Second

// Persister writes table snapshots to a Store in the background.
type Persister struct {
	store       Store
	saveTimeout time.Duration

	mu      sync.Mutex
	pending *core.Snapshot

	// saveMu keeps take-and-save atomic so two flushes never reorder.
	saveMu sync.Mutex

	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool

	saved   atomic.Int64
	failed  atomic.Int64
	lastErr atomic.Pointer[error]
}

// NewPersister returns a persister for st. A non-positive saveTimeout uses
// DefaultSaveTimeout.
func NewPersister(st Store, saveTimeout time.Duration) *Persister {
	if saveTimeout <= 0 {
		saveTimeout = DefaultSaveTimeout
	}
	return &Persister{
		store:       st,
		saveTimeout: saveTimeout,
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Attach subscribes the persister to every mutation of t.
func (p *Persister) Attach(t *core.Table) (detach func()) {
	return t.Subscribe(p.Enqueue)
}

// Enqueue replaces the pending snapshot and wakes the writer.
func (p *Persister) Enqueue(snap core.Snapshot) {
	p.mu.Lock()
	p.pending = &snap
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Start launches the writer goroutine. It runs until ctx is cancelled or
// Close is called.
func (p *Persister) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.started.Store(true)
		go p.run(ctx)
	})
}

func (p *Persister) run(ctx context.Context) {
	defer close(p.done)
	slog.Info("persister started", "save_timeout", p.saveTimeout)

	for {
		select {
		case <-ctx.Done():
			p.drain()
			slog.Info("persister stopped")
			return
		case <-p.stop:
			p.drain()
			slog.Info("persister stopped")
			return
		case <-p.wake:
			p.Flush(ctx) //nolint:errcheck // logged and counted in Flush
		}
	}
}

// drain saves whatever is still pending. The run context may already be
// cancelled, so the final write gets a fresh deadline.
func (p *Persister) drain() {
	p.Flush(context.Background()) //nolint:errcheck // logged and counted in Flush
}

// Flush saves the pending snapshot now, if there is one.
func (p *Persister) Flush(ctx context.Context) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	p.mu.Lock()
	snap := p.pending
	p.pending = nil
	p.mu.Unlock()

	if snap == nil {
		return nil
	}

	saveCtx, cancel := context.WithTimeout(ctx, p.saveTimeout)
	defer cancel()

	start := time.Now()
	if err := p.store.Save(saveCtx, *snap); err != nil {
		p.failed.Add(1)
		p.lastErr.Store(&err)
		slog.Error("snapshot save failed", "error", err, "rows", len(snap.Rows))

		// Retry on the next wake unless a newer snapshot superseded it.
		p.mu.Lock()
		if p.pending == nil {
			p.pending = snap
		}
		p.mu.Unlock()
		return err
	}

	p.saved.Add(1)
	p.lastErr.Store(nil)
	slog.Debug("snapshot saved",
		"rows", len(snap.Rows),
		"columns", len(snap.Columns),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Close stops the writer after it has saved the pending snapshot. Without
// a prior Start it flushes synchronously. It returns the last save error,
// if the most recent save failed.
func (p *Persister) Close() error {
	if !p.started.Load() {
		p.drain()
		return p.LastError()
	}
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
	return p.LastError()
}

// LastError returns the error of the most recent save, or nil if it
// succeeded.
func (p *Persister) LastError() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// PersisterStatus reports persister counters for health checks.
type PersisterStatus struct {
	Saved     int64  `json:"saved"`
	Failed    int64  `json:"failed"`
	Pending   bool   `json:"pending"`
	LastError string `json:"lastError,omitempty"`
}

// Status returns the current counters.
func (p *Persister) Status() PersisterStatus {
	p.mu.Lock()
	pending := p.pending != nil
	p.mu.Unlock()

	st := PersisterStatus{
		Saved:   p.saved.Load(),
		Failed:  p.failed.Load(),
		Pending: pending,
	}
	if err := p.LastError(); err != nil {
		st.LastError = err.Error()
	}
	return st
}
