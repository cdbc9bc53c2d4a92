package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

type contextKey string

// Request metadata placed on the context by the HTTP layer
const (
	RequestIDKey contextKey = "request_id"
	ClientIPKey  contextKey = "client_ip"
	UserAgentKey contextKey = "user_agent"
)

// ServiceLogger writes operation, audit and security records for one service
type ServiceLogger struct {
	logger *slog.Logger
}

type LogConfig struct {
	Service   string
	Component string
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
	}
}

// outcome grades an operation error: caller mistakes are warnings, missing rows are info
func outcome(err error) (slog.Level, string) {
	switch {
	case err == nil:
		return slog.LevelInfo, "success"
	case IsValidation(err), IsBusinessRule(err):
		return slog.LevelWarn, "rejected"
	case IsUnauthorized(err):
		return slog.LevelWarn, "denied"
	case IsNotFound(err):
		return slog.LevelInfo, "not_found"
	case IsConflict(err):
		return slog.LevelWarn, "conflict"
	default:
		return slog.LevelError, "error"
	}
}

func requestAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if ctx == nil {
		return attrs
	}
	for _, key := range []contextKey{RequestIDKey, ClientIPKey, UserAgentKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

func errorAttrs(err error) []slog.Attr {
	attrs := []slog.Attr{slog.String("error", err.Error())}

	var validationErrs ValidationErrors
	var ruleErr *BusinessRuleError
	var permErr *PermissionError
	switch {
	case errors.As(err, &validationErrs):
		fields := make([]string, 0, len(validationErrs))
		for _, ve := range validationErrs {
			fields = append(fields, ve.Field)
		}
		attrs = append(attrs, slog.String("invalid_fields", strings.Join(fields, ",")))
	case errors.As(err, &ruleErr):
		attrs = append(attrs, slog.String("rule", ruleErr.Rule))
	case errors.As(err, &permErr):
		attrs = append(attrs,
			slog.String("denied_action", permErr.Action),
			slog.String("denied_reason", permErr.Reason))
	}
	return attrs
}

func (l *ServiceLogger) LogOperation(ctx context.Context, operation, userID, resourceID, resourceType string, duration time.Duration, err error) {
	level, status := outcome(err)

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.String("resource_id", resourceID),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}
	if err != nil {
		attrs = append(attrs, errorAttrs(err)...)
	}
	attrs = append(attrs, requestAttrs(ctx)...)

	l.logger.LogAttrs(ctx, level, operation+" "+status, attrs...)
}

type AuditEventType string

const (
	AuditEventCreate AuditEventType = "create"
	AuditEventUpdate AuditEventType = "update"
)

type SecurityEventType string
type SecuritySeverity string

const (
	SecurityEventUnauthorizedAccess SecurityEventType = "unauthorized_access"
	SecurityEventInvalidSignature   SecurityEventType = "invalid_signature"
	SecurityEventInvalidToken       SecurityEventType = "invalid_token"

	SecuritySeverityMedium SecuritySeverity = "medium"
	SecuritySeverityHigh   SecuritySeverity = "high"
)

type SecurityEvent struct {
	Type        SecurityEventType
	Severity    SecuritySeverity
	UserID      string
	Description string
	Metadata    map[string]interface{}
}

// LogSecurityEvent records a rejected credential or signature; high severity logs at error
func (l *ServiceLogger) LogSecurityEvent(ctx context.Context, event SecurityEvent) {
	level := slog.LevelWarn
	if event.Severity == SecuritySeverityHigh {
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("security_event", string(event.Type)),
		slog.String("severity", string(event.Severity)),
		slog.String("user_id", event.UserID),
	}
	for key, value := range event.Metadata {
		attrs = append(attrs, slog.Any(key, value))
	}
	attrs = append(attrs, requestAttrs(ctx)...)

	l.logger.LogAttrs(ctx, level, "Security: "+event.Description, attrs...)
}

// ContextualLogger times one operation and tags every record with it
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	userID    string
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation string, userID string) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		userID:    userID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID string, resourceType string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.userID, resourceID, resourceType, time.Since(cl.startTime), err)
}

func (cl *ContextualLogger) LogAudit(eventType AuditEventType, resourceID string, resourceType string, oldValue, newValue interface{}) {
	attrs := []slog.Attr{
		slog.String("audit_event", string(eventType)),
		slog.String("action", cl.operation),
		slog.String("user_id", cl.userID),
		slog.String("resource_id", resourceID),
		slog.String("resource_type", resourceType),
	}
	if oldValue != nil {
		attrs = append(attrs, slog.Any("old_value", oldValue))
	}
	if newValue != nil {
		attrs = append(attrs, slog.Any("new_value", newValue))
	}
	attrs = append(attrs, requestAttrs(cl.ctx)...)

	cl.logger.logger.LogAttrs(cl.ctx, slog.LevelInfo, "Audit: "+cl.operation, attrs...)
}

func (cl *ContextualLogger) LogSecurity(eventType SecurityEventType, severity SecuritySeverity, description string, metadata map[string]interface{}) {
	cl.logger.LogSecurityEvent(cl.ctx, SecurityEvent{
		Type:        eventType,
		Severity:    severity,
		UserID:      cl.userID,
		Description: description,
		Metadata:    metadata,
	})
}

var sensitiveFieldKeys = []string{"password", "token", "secret", "credential", "mac"}

// redactFields copies provider fields for logging with credentials and signatures masked
func redactFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
		lower := strings.ToLower(k)
		for _, sensitive := range sensitiveFieldKeys {
			if strings.Contains(lower, sensitive) {
				out[k] = "[REDACTED]"
				break
			}
		}
	}
	return out
}
