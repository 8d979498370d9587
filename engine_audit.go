package goSession

import (
	"context"
	"errors"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLoginThrottled           = "login_throttled"
	auditEventLogout                   = "logout"
	auditEventLogoutAll                = "logout_all"
	auditEventPasswordChangeRevocation = "password_change_revocation"
)

// AuditErrorCode is the stable error classification written to audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrThrottled           AuditErrorCode = "throttled"
	auditErrMetadataRequired    AuditErrorCode = "client_metadata_required"
	auditErrCredentialConfig    AuditErrorCode = "credential_config"
	auditErrPrivilegeNotGranted AuditErrorCode = "privilege_not_granted"
	auditErrIssuanceFailed      AuditErrorCode = "issuance_failed"
	auditErrRevocationFailed    AuditErrorCode = "revocation_failed"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrUserNotFound        AuditErrorCode = "user_not_found"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	username string,
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
		ID:            internalaudit.NewEventID(),
		Timestamp:     e.now().UTC(),
		EventType:     eventType,
		UserID:        userID,
		Username:      username,
		ClientAddress: clientIPFromContext(ctx),
		ClientAgent:   userAgentFromContext(ctx),
		Success:       success,
		Metadata:      metadata,
	}
	if fp, ok := metadata["fingerprint"]; ok {
		event.Fingerprint = fp
		delete(metadata, "fingerprint")
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginThrottled):
		return auditErrThrottled
	case errors.Is(err, ErrClientMetadataRequired):
		return auditErrMetadataRequired
	case errors.Is(err, ErrCredentialConfig):
		return auditErrCredentialConfig
	case errors.Is(err, ErrPrivilegeNotGranted):
		return auditErrPrivilegeNotGranted
	case errors.Is(err, ErrIssuanceFailed):
		return auditErrIssuanceFailed
	case errors.Is(err, ErrRevocationFailed):
		return auditErrRevocationFailed
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenRevoked):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
