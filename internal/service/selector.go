package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/commentflow/outreach-server-go/internal/errors"
	"github.com/commentflow/outreach-server-go/internal/model"
	"github.com/commentflow/outreach-server-go/internal/repository"
)

// ReplacementSelector proposes an alternative target after a failed
// execution. It only surfaces a candidate; materializing it into a new
// draft is the scheduler's job.
type ReplacementSelector struct {
	contentRepo repository.ContentItemRepository
}

func NewReplacementSelector(contentRepo repository.ContentItemRepository) *ReplacementSelector {
	return &ReplacementSelector{contentRepo: contentRepo}
}

// Propose returns the highest-relevance unused content item for the
// failed action's business and platform, excluding the item that seeded
// the action. Returns nil when nothing suitable exists.
func (s *ReplacementSelector) Propose(ctx context.Context, action *model.Action) (*model.ContentItem, error) {
	excludeID := ""
	if action.ContentItemID != nil {
		excludeID = *action.ContentItemID
	}

	item, err := s.contentRepo.FindBestUnused(ctx, action.BusinessID, action.Platform, excludeID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if item == nil {
		return nil, nil
	}

	log.Info().
		Str("actionId", action.ID).
		Str("contentItemId", item.ID).
		Float64("relevance", item.RelevanceScore).
		Msg("replacement candidate proposed")
	return item, nil
}

// MarkConsumed records that the action's content item has been posted,
// taking it out of the replacement pool. Best-effort; a miss here only
// risks the item being proposed again.
func (s *ReplacementSelector) MarkConsumed(ctx context.Context, action *model.Action) {
	if action.ContentItemID == nil {
		return
	}
	if err := s.contentRepo.MarkUsed(ctx, *action.ContentItemID); err != nil {
		log.Error().Err(err).
			Str("actionId", action.ID).
			Str("contentItemId", *action.ContentItemID).
			Msg("mark content item used")
	}
}
