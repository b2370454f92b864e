package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/vault"
	"github.com/rs/zerolog"
)

// Engine defines a public type used by goSession APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	jwtManager   *jwt.Manager
	sessionStore *session.RefreshStore
	rateLimiter  *rate.Limiter
	vault        *vault.Vault
	identities   IdentityRepository
	revoker      Revoker
	refresher    ProviderRefresher
	verifier     IdentityVerifier
	audit        *auditDispatcher
	metrics      *Metrics
	logger       zerolog.Logger
}

// Close drains pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByEvent breaks AuditDropped down by event type.
func (e *Engine) AuditDroppedByEvent() map[string]uint64 {
	if e == nil || e.audit == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByEvent()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Ping checks the refresh session backend and returns its round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	return e.sessionStore.Ping(ctx)
}

// ReplayAnomalies returns how many superseded refresh tokens were presented
// for subjectID within the replay window.
func (e *Engine) ReplayAnomalies(ctx context.Context, subjectID string) (int, error) {
	return e.sessionStore.ReplayAnomalies(ctx, subjectID)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// warn adapts the engine logger to the key/value warn hook the flows take.
func (e *Engine) warn(msg string, args ...any) {
	e.logger.Warn().Fields(args).Msg(msg)
}
