package service

import (
	"context"
	"log/slog"

	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	apperrors "github.com/akmalstorm/stdcalumni/internal/errors"
	"github.com/akmalstorm/stdcalumni/internal/ports"
)

// ReconcileOutcome records how a profile completion was resolved.
type ReconcileOutcome string

const (
	// ReconcileFromServer means the server record replaced the local one.
	ReconcileFromServer ReconcileOutcome = "server"
	// ReconcileFallback means the lookup failed and the local record was patched complete.
	ReconcileFallback ReconcileOutcome = "fallback"
	// ReconcileStale means a logout or new login happened while the lookup was in flight.
	ReconcileStale ReconcileOutcome = "stale"
)

// ProfileGateOptions groups dependencies for ProfileGate.
type ProfileGateOptions struct {
	Profiles ports.ProfileSource
	Logger   *slog.Logger
}

// ProfileGate enforces the one-time profile completion prompt for alumni.
type ProfileGate struct {
	profiles ports.ProfileSource
	logger   *slog.Logger
}

// NewProfileGate constructs a ProfileGate.
func NewProfileGate(opts ProfileGateOptions) *ProfileGate {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileGate{profiles: opts.Profiles, logger: logger.With("component", "profile_gate")}
}

// IsIncomplete reports whether the record belongs to an alumnus who has not completed their profile.
func (g *ProfileGate) IsIncomplete(info *domainauth.UserInfo) bool {
	return info != nil &&
		info.Role == domainauth.RoleAlumni &&
		info.ProfileStatus != domainauth.ProfileComplete
}

// Reconcile fetches the authoritative record after the user completed their
// profile. On any lookup failure the local record is returned patched as complete.
func (g *ProfileGate) Reconcile(ctx context.Context, info domainauth.UserInfo) (domainauth.UserInfo, ReconcileOutcome) {
	if g.profiles == nil {
		g.logger.WarnContext(ctx, "no profile source configured, marking profile complete locally",
			"user_id", info.ID.String())
		return info.WithProfileStatus(domainauth.ProfileComplete), ReconcileFallback
	}

	fresh, err := g.profiles.FetchProfile(ctx, info.ID)
	if err != nil {
		g.logger.WarnContext(ctx, "profile lookup failed, marking profile complete locally",
			"user_id", info.ID.String(),
			"reason", fallbackReason(err),
			"error", err)
		return info.WithProfileStatus(domainauth.ProfileComplete), ReconcileFallback
	}
	return fresh, ReconcileFromServer
}

// fallbackReason names why a profile lookup could not be used.
func fallbackReason(err error) string {
	switch {
	case apperrors.IsNotFound(err):
		return "not_found"
	case apperrors.IsTimeout(err):
		return "timeout"
	case apperrors.IsCanceled(err):
		return "canceled"
	case apperrors.IsValidation(err):
		return "invalid_id"
	case apperrors.IsUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}
