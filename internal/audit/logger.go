package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventActionApprove    EventType = "action_approve"
	EventActionSkip       EventType = "action_skip"
	EventActionExecute    EventType = "action_execute"
	EventActionDelete     EventType = "action_delete"
	EventAccountCreate    EventType = "account_create"
	EventAccountDisable   EventType = "account_disable"
	EventAccountEnable    EventType = "account_enable"
	EventAccountBreaker   EventType = "account_circuit_breaker"
	EventQuotaRejected    EventType = "quota_rejected"
	EventAuthFailure      EventType = "auth_failure"
	EventImpersonation    EventType = "impersonation"
	EventImpersonationBad EventType = "impersonation_denied"
)

type Event struct {
	Type       EventType
	CustomerID string
	ActionID   string
	AccountID  string
	IP         string
	UserAgent  string
	Details    map[string]interface{}
}

func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_id", uuid.NewString()).
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.CustomerID != "" {
		logger = logger.With().Str("customer_id", event.CustomerID).Logger()
	}
	if event.ActionID != "" {
		logger = logger.With().Str("action_id", event.ActionID).Logger()
	}
	if event.AccountID != "" {
		logger = logger.With().Str("account_id", event.AccountID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = getClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
