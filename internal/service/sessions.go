package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/akmalstorm/stdcalumni/internal/observability/statsd"
	"github.com/akmalstorm/stdcalumni/internal/ports"
	"golang.org/x/sync/singleflight"
)

const (
	defaultIdleTTL        = 30 * time.Minute
	defaultRestoreTimeout = 10 * time.Second
)

// ErrVisitorIDRequired is returned when a session is requested without a visitor id.
var ErrVisitorIDRequired = errors.New("visitor id is required")

// SessionRegistryOptions groups dependencies for SessionRegistry.
type SessionRegistryOptions struct {
	Records ports.RecordStore
	Gate    *ProfileGate
	Logger  *slog.Logger
	Metrics statsd.Sink

	// IdleTTL is how long an untouched machine stays in memory. Evicted
	// machines are rebuilt from the record store on the next request.
	IdleTTL time.Duration
	// RestoreWait bounds how long Acquire waits for a new machine to finish
	// restoring. Zero waits until restore completes.
	RestoreWait time.Duration
	// RestoreTimeout bounds the restore itself.
	RestoreTimeout time.Duration

	Now func() time.Time
}

type registryEntry struct {
	machine  *AuthStateMachine
	lastSeen time.Time
}

// SessionRegistry maps visitor ids to their session context.
// It is safe for concurrent use.
type SessionRegistry struct {
	records ports.RecordStore
	gate    *ProfileGate
	logger  *slog.Logger
	metrics statsd.Sink

	idleTTL        time.Duration
	restoreWait    time.Duration
	restoreTimeout time.Duration
	now            func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]*registryEntry
}

// NewSessionRegistry constructs a SessionRegistry.
func NewSessionRegistry(opts SessionRegistryOptions) *SessionRegistry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	idle := opts.IdleTTL
	if idle <= 0 {
		idle = defaultIdleTTL
	}
	restoreTimeout := opts.RestoreTimeout
	if restoreTimeout <= 0 {
		restoreTimeout = defaultRestoreTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	gate := opts.Gate
	if gate == nil {
		gate = NewProfileGate(ProfileGateOptions{Logger: logger})
	}
	return &SessionRegistry{
		records:        opts.Records,
		gate:           gate,
		logger:         logger.With("component", "session_registry"),
		metrics:        opts.Metrics,
		idleTTL:        idle,
		restoreWait:    opts.RestoreWait,
		restoreTimeout: restoreTimeout,
		now:            now,
		entries:        make(map[string]*registryEntry),
	}
}

// Acquire returns the session context for a visitor, creating and restoring
// it on first use. When restore outlasts RestoreWait the machine is returned
// still loading.
func (r *SessionRegistry) Acquire(ctx context.Context, visitorID string) (*AuthStateMachine, error) {
	if visitorID == "" {
		return nil, ErrVisitorIDRequired
	}

	if m, ok := r.lookup(visitorID); ok {
		r.retryPendingClear(ctx, m)
		return m, nil
	}

	v, _, _ := r.group.Do(visitorID, func() (any, error) {
		if m, ok := r.lookup(visitorID); ok {
			return m, nil
		}
		return r.create(ctx, visitorID), nil
	})
	m, ok := v.(*AuthStateMachine)
	if !ok {
		return nil, errors.New("session registry: unexpected machine type")
	}

	r.awaitRestore(ctx, m)
	return m, nil
}

func (r *SessionRegistry) lookup(visitorID string) (*AuthStateMachine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[visitorID]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.machine, true
}

func (r *SessionRegistry) create(ctx context.Context, visitorID string) *AuthStateMachine {
	m := NewAuthStateMachine(AuthStateMachineOptions{
		Store:   NewSessionStore(r.records, visitorID),
		Gate:    r.gate,
		Logger:  r.logger,
		Metrics: r.metrics,
	})

	r.mu.Lock()
	r.entries[visitorID] = &registryEntry{machine: m, lastSeen: r.now()}
	r.mu.Unlock()

	restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.restoreTimeout)
	go func() {
		defer cancel()
		if err := m.Restore(restoreCtx); err != nil {
			r.logger.Warn("visitor session restore failed, next request restores again", "error", err)
			r.forget(visitorID, m)
		}
	}()
	return m
}

// forget drops a machine whose restore failed so the persisted record is
// read again once the store recovers. A machine holding a pending clear is
// kept, since dropping it would let the uncleared record come back.
func (r *SessionRegistry) forget(visitorID string, m *AuthStateMachine) {
	if m.ClearPending() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[visitorID]; ok && e.machine == m {
		delete(r.entries, visitorID)
	}
}

func (r *SessionRegistry) retryPendingClear(ctx context.Context, m *AuthStateMachine) {
	if !m.ClearPending() {
		return
	}
	if err := m.RetryClear(ctx); err != nil {
		r.logger.WarnContext(ctx, "pending session clear still failing", "error", err)
		if r.metrics != nil {
			r.metrics.Count("session.clear_retry", 1, map[string]string{"result": "error"})
		}
		return
	}
	if r.metrics != nil {
		r.metrics.Count("session.clear_retry", 1, map[string]string{"result": "success"})
	}
}

func (r *SessionRegistry) awaitRestore(ctx context.Context, m *AuthStateMachine) {
	if r.restoreWait <= 0 {
		select {
		case <-m.Ready():
		case <-ctx.Done():
		}
		return
	}

	timer := time.NewTimer(r.restoreWait)
	defer timer.Stop()
	select {
	case <-m.Ready():
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Sweep evicts machines idle since before now-IdleTTL and returns how many
// were dropped. Machines with a pending logout clear are never evicted.
func (r *SessionRegistry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.idleTTL)

	r.mu.Lock()
	evicted := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) && !e.machine.ClearPending() {
			delete(r.entries, id)
			evicted++
		}
	}
	active := len(r.entries)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.Gauge("session.active", float64(active), nil)
		if evicted > 0 {
			r.metrics.Count("session.evicted", int64(evicted), nil)
		}
	}
	return evicted
}

// Len returns the number of machines held in memory.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run sweeps idle machines on every tick until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(r.now()); n > 0 {
				r.logger.Debug("evicted idle visitor sessions", "count", n)
			}
		}
	}
}
