package metrics

import (
	"time"

	obserrors "github.com/akmalstorm/stdcalumni/internal/observability/errors"
	"github.com/akmalstorm/stdcalumni/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Session transitions.
const (
	TransitionRestore          = "restore"
	TransitionLogin            = "login"
	TransitionLogout           = "logout"
	TransitionProfileCompleted = "profile_completed"
)

// SessionMetric captures one session context transition for metric emission.
type SessionMetric struct {
	Transition string
	// Outcome is transition specific, e.g. restored/empty/corrupt or server/fallback/stale.
	Outcome  string
	Role     string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitSessionTransition emits standardised session transition metrics.
func EmitSessionTransition(sink statsd.Sink, in SessionMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Outcome != "" {
		tags["outcome"] = in.Outcome
	}
	if in.Role != "" {
		tags["role"] = in.Role
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("session.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("session.transition_duration", in.Duration, CloneTags(tags))
	}
}

// GuardMetric captures a single route guard evaluation.
type GuardMetric struct {
	Guard  string
	Action string
}

// EmitGuardDecision counts route guard decisions by guard and action.
func EmitGuardDecision(sink statsd.Sink, in GuardMetric) {
	if sink == nil {
		return
	}
	sink.Count("route.guard", 1, map[string]string{
		"guard":  in.Guard,
		"action": in.Action,
	})
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
