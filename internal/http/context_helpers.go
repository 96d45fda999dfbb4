package httpx

import (
	"context"

	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	"github.com/akmalstorm/stdcalumni/internal/service"
)

// machineKey is an unexported context key type to avoid collisions across packages.
type machineKey struct{}

// SetMachineInContext returns a child context carrying the visitor's session machine.
// If m is nil, the original ctx is returned unchanged.
func SetMachineInContext(ctx context.Context, m *service.AuthStateMachine) context.Context {
	if m == nil {
		return ctx
	}
	return context.WithValue(ctx, machineKey{}, m)
}

// MachineFromContext returns the visitor's session machine, or nil.
func MachineFromContext(ctx context.Context) *service.AuthStateMachine {
	m, _ := ctx.Value(machineKey{}).(*service.AuthStateMachine)
	return m
}

// SessionFromContext returns a snapshot of the visitor's session. Requests
// without a machine are reported as signed out and not loading.
func SessionFromContext(ctx context.Context) domainauth.Session {
	if m := MachineFromContext(ctx); m != nil {
		return m.Snapshot()
	}
	return domainauth.Session{}
}
