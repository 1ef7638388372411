package registry

import (
	"errors"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/domain"
	"github.com/agenttrace/xray/internal/pkg/metrics"
)

// ErrNotFound is returned when no execution is stored under an ID
var ErrNotFound = errors.New("execution not found")

// Listener receives a copy of every snapshot saved for one execution
type Listener func(exec *domain.Execution)

// Subscription identifies a registered listener
type Subscription struct {
	id          uint64
	executionID string
}

// ExecutionID returns the execution the subscription listens to
func (s *Subscription) ExecutionID() string {
	return s.executionID
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithWatchBuffer sets the channel buffer used by Watch
func WithWatchBuffer(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.watchBuffer = n
		}
	}
}

// Registry stores executions by ID and publishes updates
type Registry struct {
	mu         sync.RWMutex
	executions map[string]*domain.Execution
	order      []string
	listeners  map[string][]listenerEntry
	nextID     uint64

	logger      *zap.Logger
	watchBuffer int
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		executions:  make(map[string]*domain.Execution),
		listeners:   make(map[string][]listenerEntry),
		logger:      zap.NewNop(),
		watchBuffer: 16,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save upserts a deep copy of exec and notifies the execution's listeners.
// Listeners registered before Save is called receive the update exactly once,
// synchronously and in subscription order, after the lock is released.
func (r *Registry) Save(exec *domain.Execution) {
	if exec == nil {
		return
	}
	stored := exec.Clone()

	r.mu.Lock()
	if _, exists := r.executions[stored.ExecutionID]; !exists {
		r.order = append(r.order, stored.ExecutionID)
	}
	r.executions[stored.ExecutionID] = stored
	entries := make([]listenerEntry, len(r.listeners[stored.ExecutionID]))
	copy(entries, r.listeners[stored.ExecutionID])
	count := len(r.executions)
	r.mu.Unlock()

	metrics.RecordSave(string(stored.Status), count)

	for _, entry := range entries {
		r.notify(entry, stored)
	}
}

func (r *Registry) notify(entry listenerEntry, exec *domain.Execution) {
	var pc panics.Catcher
	pc.Try(func() { entry.fn(exec.Clone()) })
	if rec := pc.Recovered(); rec != nil {
		r.logger.Error("registry listener panicked",
			zap.String("execution_id", exec.ExecutionID),
			zap.Uint64("subscription", entry.id),
			zap.Error(rec.AsError()),
		)
	}
}

// Get returns a copy of the stored execution
func (r *Registry) Get(id string) (*domain.Execution, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, ok := r.executions[id]
	if !ok {
		return nil, false
	}
	return exec.Clone(), true
}

// List returns copies of all executions in insertion order
func (r *Registry) List() []*domain.Execution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Execution, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.executions[id].Clone())
	}
	return out
}

// Len returns the number of stored executions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.executions)
}

// Subscribe registers fn for future saves of the given execution. Earlier
// saves are not replayed.
func (r *Registry) Subscribe(executionID string, fn Listener) *Subscription {
	r.mu.Lock()
	r.nextID++
	sub := &Subscription{id: r.nextID, executionID: executionID}
	r.listeners[executionID] = append(r.listeners[executionID], listenerEntry{id: sub.id, fn: fn})
	total := r.subscriberTotalLocked()
	r.mu.Unlock()

	metrics.SetSubscribers(total)
	return sub
}

// Unsubscribe removes a subscription. Unknown or repeated calls are no-ops.
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	entries := r.listeners[sub.executionID]
	for i, entry := range entries {
		if entry.id != sub.id {
			continue
		}
		kept := make([]listenerEntry, 0, len(entries)-1)
		kept = append(kept, entries[:i]...)
		kept = append(kept, entries[i+1:]...)
		if len(kept) == 0 {
			delete(r.listeners, sub.executionID)
		} else {
			r.listeners[sub.executionID] = kept
		}
		break
	}
	total := r.subscriberTotalLocked()
	r.mu.Unlock()

	metrics.SetSubscribers(total)
}

// SubscriberCount returns the number of listeners for an execution
func (r *Registry) SubscriberCount(executionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[executionID])
}

func (r *Registry) subscriberTotalLocked() int {
	n := 0
	for _, entries := range r.listeners {
		n += len(entries)
	}
	return n
}
