package goSession

import (
	"context"
	"time"
)

const (
	auditEventLoginSuccess            = "login_success"
	auditEventLoginFailure            = "login_failure"
	auditEventRefreshSuccess          = "refresh_success"
	auditEventRefreshInvalid          = "refresh_invalid"
	auditEventRefreshRateLimited      = "refresh_rate_limited"
	auditEventRefreshReuseDetected    = "refresh_reuse_detected"
	auditEventLogout                  = "logout"
	auditEventDisconnect              = "disconnect"
	auditEventUpstreamRevocationFail  = "upstream_revocation_failed"
	auditEventScopesMissing           = "scopes_missing"
	auditEventProviderTokenRefreshed  = "provider_token_refreshed"
	auditEventProviderTokenRefreshErr = "provider_token_refresh_failed"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SubjectID: subjectID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Error:     ErrorCode(err),
		Metadata:  metadata,
	}

	e.audit.Emit(ctx, event)
}
