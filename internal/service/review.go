package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/courtside/pbp-edit-monitor-go/internal/db"
	"github.com/courtside/pbp-edit-monitor-go/internal/db/models"
	"github.com/courtside/pbp-edit-monitor-go/internal/db/repository"
	"github.com/courtside/pbp-edit-monitor-go/pkg/logger"
)

// ReviewUpdate carries the operator's triage decision for one action.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ReviewUpdate struct {
	Status   models.ReviewStatus `json:"status"`
	Note     string              `json:"note"`
	Tags     []string            `json:"tags"`
	Priority models.FlagPriority `json:"priority"`
}

// PeriodGroup is one period's actions in play order.
type PeriodGroup struct {
	Period  int              `json:"period"`
	Actions []*models.Action `json:"actions"`
}

// ReviewStats aggregates review and edit state for one game.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ReviewStats struct {
	TotalActions     int     `json:"total_actions"`
	EditedActions    int     `json:"edited_actions"`
	DeletedActions   int     `json:"deleted_actions"`
	Approved         int     `json:"approved"`
	Flagged          int     `json:"flagged"`
	Unreviewed       int     `json:"unreviewed"`
	PercentReviewed  float64 `json:"percent_reviewed"`
	TotalEdits       int     `json:"total_edits"`
	AvgEditLatencySec float64 `json:"avg_edit_latency_sec"`
}

// ReviewService implements the operator triage workflow on top of the action
// store. It is independent of the sync engine.
type ReviewService struct {
	actions repository.ActionRepository
}

// NewReviewService creates a ReviewService.
func NewReviewService(actions repository.ActionRepository) *ReviewService {
	return &ReviewService{actions: actions}
}

// SetReviewStatus updates the review fields of one action. Approving or
// flagging clears the re-edited-after-approval marker; the action has been
// seen again.
func (s *ReviewService) SetReviewStatus(ctx context.Context, gameID string, actionNumber int, update ReviewUpdate) (*models.Action, error) {
	switch update.Status {
	case models.ReviewStatusUnreviewed, models.ReviewStatusApproved, models.ReviewStatusFlagged:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidReviewStatus, update.Status)
	}
	switch update.Priority {
	case "", models.FlagPriorityMinor, models.FlagPriorityMajor:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFlagPriority, update.Priority)
	}

	action, err := s.actions.Get(ctx, gameID, actionNumber)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%d", ErrActionNotFound, gameID, actionNumber)
		}
		return nil, fmt.Errorf("set review status: %w", err)
	}

	now := time.Now()
	action.ReviewStatus = update.Status
	action.ReviewedAt = &now
	action.ReviewNote = update.Note
	action.ReviewTags = update.Tags
	action.FlagPriority = update.Priority
	action.UpdatedAt = now

	if update.Status == models.ReviewStatusApproved || update.Status == models.ReviewStatusFlagged {
		action.WasReEditedAfterApproval = false
	}

	if err := s.actions.Save(ctx, action); err != nil {
		return nil, fmt.Errorf("set review status: %w", err)
	}

	logger.Log.Info("Review status updated",
		zap.String("gameId", gameID),
		zap.Int("actionNumber", actionNumber),
		zap.String("status", string(update.Status)),
	)
	return action, nil
}

// BatchApproveUnedited approves every action that has no significant edit and
// is still unreviewed, returning how many were affected.
func (s *ReviewService) BatchApproveUnedited(ctx context.Context, gameID string) (int64, error) {
	count, err := s.actions.BatchApproveUnedited(ctx, gameID)
	if err != nil {
		return 0, fmt.Errorf("batch approve: %w", err)
	}

	logger.Log.Info("Batch approved unedited actions",
		zap.String("gameId", gameID),
		zap.Int64("count", count),
	)
	return count, nil
}

// ClearAllReviews resets every action's review fields for re-triage.
func (s *ReviewService) ClearAllReviews(ctx context.Context, gameID string) (int64, error) {
	count, err := s.actions.ClearReviews(ctx, gameID)
	if err != nil {
		return 0, fmt.Errorf("clear reviews: %w", err)
	}

	logger.Log.Info("Cleared reviews", zap.String("gameId", gameID), zap.Int64("count", count))
	return count, nil
}

// ActionsByPeriod returns the game's actions grouped by period, periods in
// ascending order.
func (s *ReviewService) ActionsByPeriod(ctx context.Context, gameID string) ([]PeriodGroup, error) {
	actions, err := s.actions.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("actions by period: %w", err)
	}

	byPeriod := make(map[int][]*models.Action)
	for _, a := range actions {
		byPeriod[a.Period] = append(byPeriod[a.Period], a)
	}

	periods := make([]int, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Ints(periods)

	groups := make([]PeriodGroup, 0, len(periods))
	for _, p := range periods {
		groups = append(groups, PeriodGroup{Period: p, Actions: byPeriod[p]})
	}
	return groups, nil
}

// EditedActions returns only the actions carrying a significant edit or
// deletion.
func (s *ReviewService) EditedActions(ctx context.Context, gameID string) ([]*models.Action, error) {
	actions, err := s.actions.ListEdited(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("edited actions: %w", err)
	}
	return actions, nil
}

// Stats computes aggregate review and edit statistics for a game.
func (s *ReviewService) Stats(ctx context.Context, gameID string) (*ReviewStats, error) {
	actions, err := s.actions.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}

	stats := &ReviewStats{TotalActions: len(actions)}
	var latencySum float64

	for _, a := range actions {
		if a.HasSignificantEdit {
			stats.EditedActions++
		}
		if a.IsDeleted {
			stats.DeletedActions++
		}
		switch a.ReviewStatus {
		case models.ReviewStatusApproved:
			stats.Approved++
		case models.ReviewStatusFlagged:
			stats.Flagged++
		default:
			stats.Unreviewed++
		}
		stats.TotalEdits += a.EditCount
		for _, rec := range a.EditHistory {
			latencySum += rec.TimeDiff
		}
	}

	if stats.TotalActions > 0 {
		reviewed := stats.Approved + stats.Flagged
		stats.PercentReviewed = 100 * float64(reviewed) / float64(stats.TotalActions)
	}
	if stats.TotalEdits > 0 {
		stats.AvgEditLatencySec = latencySum / float64(stats.TotalEdits)
	}

	return stats, nil
}
