package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	obserrors "github.com/akmalstorm/stdcalumni/internal/observability/errors"
	"github.com/akmalstorm/stdcalumni/internal/observability/metrics"
	"github.com/akmalstorm/stdcalumni/internal/observability/statsd"
	"github.com/akmalstorm/stdcalumni/internal/ports"
)

const defaultPurgeInterval = 15 * time.Minute

// JanitorServiceOptions groups dependencies for JanitorService.
type JanitorServiceOptions struct {
	Purger   ports.RecordPurger // Required
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// JanitorService periodically deletes expired persisted session records.
// Stores with native expiry (Redis) never need it.
type JanitorService struct {
	purger   ports.RecordPurger
	interval time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewJanitorService constructs a JanitorService.
func NewJanitorService(opts JanitorServiceOptions) (*JanitorService, error) {
	if opts.Purger == nil {
		return nil, errors.New("record purger is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JanitorService{
		purger:   opts.Purger,
		interval: interval,
		logger:   logger.With("component", "session_janitor"),
		metrics:  opts.Metrics,
	}, nil
}

// Run purges once after a short jitter, then on every interval until ctx is
// cancelled. It returns nil on graceful shutdown.
func (s *JanitorService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting session janitor", "interval", s.interval)

	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.Purge(ctx); err != nil {
		s.logPurgeError(ctx, err, "initial purge")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "session janitor stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Purge(ctx); err != nil {
				s.logPurgeError(ctx, err, "purge")
			}
		}
	}
}

// Purge runs one purge pass and returns how many records were removed.
func (s *JanitorService) Purge(ctx context.Context) (int64, error) {
	start := time.Now()
	count, err := s.purger.PurgeExpired(ctx)
	s.emitPurgeMetrics(count, suppressContextCancellation(err), time.Since(start))
	if err != nil {
		return count, fmt.Errorf("purge expired session records: %w", err)
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "purged expired session records", "count", count)
	}
	return count, nil
}

// waitWithJitter delays up to 10% of the interval so replicas do not purge in lockstep.
func (s *JanitorService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (s *JanitorService) emitPurgeMetrics(count int64, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if count == 0 {
		result = metrics.ResultNoop
	}
	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("session.purge", 1, tags)
	if elapsed > 0 {
		s.metrics.Timing("session.purge_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil && count > 0 {
		s.metrics.Count("session.records_purged", count, nil)
	}
	if err == nil {
		s.metrics.Gauge("session.purge_last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *JanitorService) logPurgeError(ctx context.Context, err error, label string) {
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, label+" cancelled by context", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
