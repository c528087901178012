package model

import (
	"time"
)

type Action struct {
	ID                string       `db:"id" json:"id"`
	BusinessID        string       `db:"business_id" json:"businessId"`
	Platform          string       `db:"platform" json:"platform"`
	TargetURL         string       `db:"target_url" json:"targetUrl"`
	TargetTitle       *string      `db:"target_title" json:"targetTitle,omitempty"`
	TargetSnippet     *string      `db:"target_snippet" json:"targetSnippet,omitempty"`
	CommentText       string       `db:"comment_text" json:"commentText"`
	EditedCommentText *string      `db:"edited_comment_text" json:"editedCommentText,omitempty"`
	RelevanceScore    float64      `db:"relevance_score" json:"relevanceScore"`
	Status            ActionStatus `db:"status" json:"status"`
	AutoApproved      bool         `db:"auto_approved" json:"autoApproved"`
	ScheduledFor      *time.Time   `db:"scheduled_for" json:"scheduledFor,omitempty"`
	ExecutedAt        *time.Time   `db:"executed_at" json:"executedAt,omitempty"`
	ExternalRef       *string      `db:"external_ref" json:"externalRef,omitempty"`
	ErrorMessage      *string      `db:"error_message" json:"errorMessage,omitempty"`
	RetryCount        int          `db:"retry_count" json:"retryCount"`
	ContentItemID     *string      `db:"content_item_id" json:"contentItemId,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updatedAt"`
}

// PostText is the text an execution posts: the human edit wins over the draft.
func (a *Action) PostText() string {
	if a.EditedCommentText != nil && *a.EditedCommentText != "" {
		return *a.EditedCommentText
	}
	return a.CommentText
}

type CreateActionParams struct {
	BusinessID     string
	Platform       string
	TargetURL      string
	TargetTitle    *string
	TargetSnippet  *string
	CommentText    string
	RelevanceScore float64
	Status         ActionStatus
	AutoApproved   bool
	ContentItemID  *string
}

type UpdateActionParams struct {
	EditedCommentText *string
	ScheduledFor      *time.Time
}

type ActionFilter struct {
	CustomerID *string
	BusinessID *string
	Status     *ActionStatus
	Platform   *string
	Limit      int
	Offset     int
}
