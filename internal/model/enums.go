package model

// ActionStatus is the lifecycle state of an outreach action.
type ActionStatus string

const (
	ActionStatusPendingReview ActionStatus = "pending_review"
	ActionStatusApproved      ActionStatus = "approved"
	ActionStatusScheduled     ActionStatus = "scheduled"
	ActionStatusExecuting     ActionStatus = "executing"
	ActionStatusCompleted     ActionStatus = "completed"
	ActionStatusFailed        ActionStatus = "failed"
	ActionStatusSkipped       ActionStatus = "skipped"
)

// allowedTransitions is the single authority on legal status changes.
// completed is terminal; failed and skipped can re-enter review.
var allowedTransitions = map[ActionStatus][]ActionStatus{
	ActionStatusPendingReview: {ActionStatusApproved, ActionStatusSkipped},
	ActionStatusApproved:      {ActionStatusScheduled, ActionStatusPendingReview, ActionStatusSkipped},
	ActionStatusScheduled:     {ActionStatusExecuting, ActionStatusPendingReview, ActionStatusSkipped},
	ActionStatusExecuting:     {ActionStatusCompleted, ActionStatusFailed},
	ActionStatusCompleted:     {},
	ActionStatusFailed:        {ActionStatusPendingReview, ActionStatusSkipped},
	ActionStatusSkipped:       {ActionStatusPendingReview},
}

// CanTransition reports whether from → to is a legal status change.
func CanTransition(from, to ActionStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s names a known action status.
func IsValidStatus(s ActionStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// ChannelKind identifies the mechanism an execution account posts through.
type ChannelKind string

const (
	ChannelKindPanel    ChannelKind = "panel"
	ChannelKindProxyAPI ChannelKind = "proxy_api"
	ChannelKindBrowser  ChannelKind = "browser"
)

// IsValidChannel reports whether c names a known channel kind.
func IsValidChannel(c ChannelKind) bool {
	switch c {
	case ChannelKindPanel, ChannelKindProxyAPI, ChannelKindBrowser:
		return true
	}
	return false
}

// ActionType is the kind of outreach an action performs on its target.
type ActionType string

const (
	ActionTypeComment ActionType = "comment"
)
