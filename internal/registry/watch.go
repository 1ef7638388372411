package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/domain"
)

// watcher adapts a listener to a buffered channel. Snapshots supersede each
// other, so a full buffer drops its oldest entry instead of blocking Save.
type watcher struct {
	mu     sync.Mutex
	ch     chan *domain.Execution
	done   chan struct{}
	closed bool
	last   *domain.Execution
}

func (w *watcher) deliver(exec *domain.Execution) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deliverLocked(exec)
}

func (w *watcher) deliverLocked(exec *domain.Execution) {
	if w.closed || w.stale(exec) {
		return
	}
	w.last = exec

	for {
		select {
		case w.ch <- exec:
			if exec.Status.IsTerminal() {
				w.closeLocked()
			}
			return
		default:
		}
		select {
		case <-w.ch:
		default:
		}
	}
}

// stale reports whether exec is older than the last delivered snapshot
func (w *watcher) stale(exec *domain.Execution) bool {
	if w.last == nil {
		return false
	}
	if exec.Status.Rank() < w.last.Status.Rank() {
		return true
	}
	return len(exec.Steps) < len(w.last.Steps)
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

func (w *watcher) closeLocked() {
	if w.closed {
		return
	}
	w.closed = true
	close(w.ch)
	close(w.done)
}

// Watch streams snapshots of one execution: the current one first, then
// every later save. The channel closes after a terminal snapshot or when ctx
// is done.
func (r *Registry) Watch(ctx context.Context, executionID string) (<-chan *domain.Execution, error) {
	w := &watcher{
		ch:   make(chan *domain.Execution, r.watchBuffer),
		done: make(chan struct{}),
	}

	// Hold the watcher lock so live updates queue behind the initial snapshot.
	w.mu.Lock()
	sub := r.Subscribe(executionID, w.deliver)
	current, ok := r.Get(executionID)
	if !ok {
		w.mu.Unlock()
		r.Unsubscribe(sub)
		return nil, fmt.Errorf("watch %s: %w", executionID, ErrNotFound)
	}
	w.deliverLocked(current)
	w.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			w.close()
		case <-w.done:
		}
		r.Unsubscribe(sub)
		r.logger.Debug("watch ended", zap.String("execution_id", executionID))
	}()

	return w.ch, nil
}
