package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	"github.com/akmalstorm/stdcalumni/internal/observability/metrics"
	"github.com/akmalstorm/stdcalumni/internal/observability/statsd"
)

// Restore outcomes used for logging and metrics.
const (
	restoreRestored = "restored"
	restoreEmpty    = "empty"
	restoreCorrupt  = "corrupt"
	restoreError    = "error"
	restoreStale    = "stale"
)

// AuthStateMachineOptions groups dependencies for AuthStateMachine.
type AuthStateMachineOptions struct {
	Store   *SessionStore
	Gate    *ProfileGate
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// AuthStateMachine owns the session context of one visitor. Restore, Login,
// Logout and ProfileCompleted are its only mutators.
type AuthStateMachine struct {
	store   *SessionStore
	gate    *ProfileGate
	logger  *slog.Logger
	metrics statsd.Sink

	restoreOnce sync.Once
	restoreErr  error
	ready       chan struct{}

	mu         sync.Mutex
	loading    bool
	role       domainauth.Role
	user       *domainauth.UserInfo
	gateActive bool
	// clearPending is set while a logout has not been persisted.
	clearPending bool
	// epoch advances on every login and logout so in-flight work started
	// under an older session can detect that it must not apply its result.
	epoch uint64
}

// NewAuthStateMachine constructs a machine in the loading state.
func NewAuthStateMachine(opts AuthStateMachineOptions) *AuthStateMachine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gate := opts.Gate
	if gate == nil {
		gate = NewProfileGate(ProfileGateOptions{Logger: logger})
	}
	if opts.Store != nil {
		logger = logger.With("visitor", opts.Store.Scope())
	}
	return &AuthStateMachine{
		store:   opts.Store,
		gate:    gate,
		logger:  logger,
		metrics: opts.Metrics,
		ready:   make(chan struct{}),
		loading: true,
	}
}

// Ready is closed once Restore has finished.
func (m *AuthStateMachine) Ready() <-chan struct{} { return m.ready }

// Restore rehydrates the session from the persisted record. It runs at most
// once; later calls return the first result. Loading is always cleared.
func (m *AuthStateMachine) Restore(ctx context.Context) error {
	m.restoreOnce.Do(func() {
		defer close(m.ready)
		m.restoreErr = m.restore(ctx)
	})
	return m.restoreErr
}

func (m *AuthStateMachine) restore(ctx context.Context) error {
	start := time.Now()

	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	stored, ok, err := m.store.Load(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false

	if m.epoch != epoch {
		m.logger.DebugContext(ctx, "session changed during restore, keeping newer state")
		m.emit(metrics.SessionMetric{Transition: metrics.TransitionRestore, Outcome: restoreStale, Result: metrics.ResultNoop})
		return nil
	}

	switch {
	case errors.Is(err, ErrCorruptSession):
		m.logger.WarnContext(ctx, "discarded corrupt persisted session", "error", err)
		m.emit(metrics.SessionMetric{Transition: metrics.TransitionRestore, Outcome: restoreCorrupt, Result: metrics.ResultSuccess})
		return nil
	case err != nil:
		m.logger.ErrorContext(ctx, "restore session failed", "error", err)
		m.emit(metrics.SessionMetric{
			Transition: metrics.TransitionRestore, Outcome: restoreError,
			Result: metrics.ResultError, Err: err,
		})
		return fmt.Errorf("restore session: %w", err)
	case !ok:
		m.emit(metrics.SessionMetric{Transition: metrics.TransitionRestore, Outcome: restoreEmpty, Result: metrics.ResultNoop})
		return nil
	}

	user := stored.User
	m.role = stored.Role
	m.user = &user
	m.gateActive = stored.Role == domainauth.RoleAlumni && m.gate.IsIncomplete(&user)

	m.emit(metrics.SessionMetric{
		Transition: metrics.TransitionRestore,
		Outcome:    restoreRestored,
		Role:       string(stored.Role),
		Result:     metrics.ResultSuccess,
		Duration:   time.Since(start),
	})
	return nil
}

// Login applies a successful sign-in reported by the login collaborator.
// serverRole must be exactly "Admin" or "Alumni"; anything else signs the
// visitor out instead of leaving a partial session behind. The record is
// persisted before the in-memory session changes, so a failed write leaves
// the previous session in place on both sides.
func (m *AuthStateMachine) Login(ctx context.Context, serverRole string, user domainauth.UserInfo, token string) error {
	role, ok := domainauth.ParseServerRole(serverRole)
	if !ok {
		m.logger.InfoContext(ctx, "login rejected: unrecognized role", "role", serverRole)
		m.emit(metrics.SessionMetric{Transition: metrics.TransitionLogin, Outcome: "rejected", Result: metrics.ResultNoop})
		return m.Logout(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.clearPendingLocked(ctx); err != nil {
		m.logger.ErrorContext(ctx, "clear previous session before login failed", "error", err)
		m.emit(metrics.SessionMetric{
			Transition: metrics.TransitionLogin, Role: string(role),
			Result: metrics.ResultError, Err: err,
		})
		return fmt.Errorf("login: %w", err)
	}

	if err := m.store.Save(ctx, role, user, token); err != nil {
		m.logger.ErrorContext(ctx, "persist login failed", "role", string(role), "error", err)
		m.emit(metrics.SessionMetric{
			Transition: metrics.TransitionLogin, Role: string(role),
			Result: metrics.ResultError, Err: err,
		})
		return fmt.Errorf("login: %w", err)
	}

	m.epoch++
	m.loading = false
	m.role = role
	m.user = &user
	m.gateActive = role == domainauth.RoleAlumni && m.gate.IsIncomplete(&user)

	m.logger.InfoContext(ctx, "visitor signed in",
		"role", string(role),
		"user_id", user.ID.String(),
		"profile_gate", m.gateActive)
	m.emit(metrics.SessionMetric{Transition: metrics.TransitionLogin, Role: string(role), Result: metrics.ResultSuccess})
	return nil
}

// Logout returns the visitor to the unauthenticated state and clears the
// persisted record. Calling it repeatedly is harmless. When the record
// cannot be cleared the machine keeps a pending clear: the registry will not
// evict it and retries the clear on the visitor's next request.
func (m *AuthStateMachine) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.loading = false
	m.role = domainauth.RoleUnauthenticated
	m.user = nil
	m.gateActive = false
	m.clearPending = true

	if err := m.clearPendingLocked(ctx); err != nil {
		m.logger.ErrorContext(ctx, "clear persisted session failed", "error", err)
		m.emit(metrics.SessionMetric{Transition: metrics.TransitionLogout, Result: metrics.ResultError, Err: err})
		return fmt.Errorf("logout: %w", err)
	}
	m.emit(metrics.SessionMetric{Transition: metrics.TransitionLogout, Result: metrics.ResultSuccess})
	return nil
}

// ClearPending reports whether a logout has not reached the record store yet.
func (m *AuthStateMachine) ClearPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearPending
}

// RetryClear repeats a failed logout clear. It does nothing when no clear is pending.
func (m *AuthStateMachine) RetryClear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.clearPending {
		return nil
	}
	if err := m.clearPendingLocked(ctx); err != nil {
		return fmt.Errorf("retry clear: %w", err)
	}
	m.logger.InfoContext(ctx, "pending session clear completed")
	return nil
}

func (m *AuthStateMachine) clearPendingLocked(ctx context.Context) error {
	if !m.clearPending {
		return nil
	}
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.clearPending = false
	return nil
}

// ProfileCompleted closes the profile gate at once, then reconciles the user
// record with the server. The reconciled record is applied and persisted
// only if no login or logout happened while the lookup was in flight.
func (m *AuthStateMachine) ProfileCompleted(ctx context.Context) error {
	m.mu.Lock()
	m.gateActive = false
	if m.user == nil || !m.user.ID.Addressable() {
		m.mu.Unlock()
		return nil
	}
	epoch := m.epoch
	current := *m.user
	m.mu.Unlock()

	start := time.Now()
	updated, outcome := m.gate.Reconcile(ctx, current)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		m.logger.DebugContext(ctx, "discarding stale profile reconcile", "user_id", current.ID.String())
		m.emit(metrics.SessionMetric{
			Transition: metrics.TransitionProfileCompleted,
			Outcome:    string(ReconcileStale),
			Result:     metrics.ResultNoop,
			Duration:   time.Since(start),
		})
		return nil
	}

	m.user = &updated
	if err := m.store.SaveUserInfo(ctx, updated); err != nil {
		m.logger.ErrorContext(ctx, "persist reconciled profile failed", "error", err)
		m.emit(metrics.SessionMetric{
			Transition: metrics.TransitionProfileCompleted, Outcome: string(outcome),
			Result: metrics.ResultError, Err: err,
		})
		return fmt.Errorf("profile completed: %w", err)
	}

	m.emit(metrics.SessionMetric{
		Transition: metrics.TransitionProfileCompleted,
		Outcome:    string(outcome),
		Result:     metrics.ResultSuccess,
		Duration:   time.Since(start),
	})
	return nil
}

// Snapshot returns a copy of the current session context.
func (m *AuthStateMachine) Snapshot() domainauth.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := domainauth.Session{
		Role:              m.role,
		Loading:           m.loading,
		ProfileGateActive: m.gateActive,
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// PersistedRole reads the role from the record store, bypassing memory.
func (m *AuthStateMachine) PersistedRole(ctx context.Context) (domainauth.Role, error) {
	if m.store == nil {
		return domainauth.RoleUnauthenticated, nil
	}
	return m.store.Role(ctx)
}

// Role returns the current role.
func (m *AuthStateMachine) Role() domainauth.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.role
}

// IsLoading reports whether restore has not finished yet.
func (m *AuthStateMachine) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// ProfileGateActive reports whether the profile completion prompt must be shown.
func (m *AuthStateMachine) ProfileGateActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gateActive
}

func (m *AuthStateMachine) emit(in metrics.SessionMetric) {
	metrics.EmitSessionTransition(m.metrics, in)
}
