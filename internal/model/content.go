package model

import (
	"time"
)

// ContentItem is a discovered target produced by the content pipeline.
// used marks items that already seeded an action.
type ContentItem struct {
	ID             string    `db:"id" json:"id"`
	BusinessID     string    `db:"business_id" json:"businessId"`
	Platform       string    `db:"platform" json:"platform"`
	URL            string    `db:"url" json:"url"`
	Title          *string   `db:"title" json:"title,omitempty"`
	Snippet        *string   `db:"snippet" json:"snippet,omitempty"`
	RelevanceScore float64   `db:"relevance_score" json:"relevanceScore"`
	Used           bool      `db:"used" json:"used"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
