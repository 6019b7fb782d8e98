package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/courtside/pbp-edit-monitor-go/internal/db/models"
)

func seedAction(t *testing.T, repo *fakeActionRepo, number, period int, mutate func(*models.Action)) {
	t.Helper()
	a := models.NewAction(testGameID, number, models.ActionSnapshot{
		Description: "Smith 15' Jump Shot (2 PTS)",
		Period:      period,
	})
	if mutate != nil {
		mutate(a)
	}
	if err := repo.Save(context.Background(), a); err != nil {
		t.Fatalf("seed action %d: %v", number, err)
	}
}

func TestSetReviewStatusApprove(t *testing.T) {
	repo := newFakeActionRepo()
	svc := NewReviewService(repo)
	seedAction(t, repo, 1, 1, func(a *models.Action) {
		a.WasReEditedAfterApproval = true
	})

	action, err := svc.SetReviewStatus(context.Background(), testGameID, 1, ReviewUpdate{
		Status: models.ReviewStatusApproved,
		Note:   "checked against broadcast",
	})
	if err != nil {
		t.Fatalf("SetReviewStatus() error = %v", err)
	}

	if action.ReviewStatus != models.ReviewStatusApproved {
		t.Errorf("ReviewStatus = %q, want approved", action.ReviewStatus)
	}
	if action.ReviewedAt == nil {
		t.Error("ReviewedAt not set")
	}
	if action.ReviewNote != "checked against broadcast" {
		t.Errorf("ReviewNote = %q", action.ReviewNote)
	}
	if action.WasReEditedAfterApproval {
		t.Error("re-edit marker not cleared by approval")
	}

	stored := repo.get(t, testGameID, 1)
	if stored.ReviewStatus != models.ReviewStatusApproved {
		t.Error("approval not persisted")
	}
}

func TestSetReviewStatusFlagWithPriority(t *testing.T) {
	repo := newFakeActionRepo()
	svc := NewReviewService(repo)
	seedAction(t, repo, 1, 1, nil)

	action, err := svc.SetReviewStatus(context.Background(), testGameID, 1, ReviewUpdate{
		Status:   models.ReviewStatusFlagged,
		Priority: models.FlagPriorityMajor,
		Tags:     []string{"scoring", "attribution"},
	})
	if err != nil {
		t.Fatalf("SetReviewStatus() error = %v", err)
	}

	if action.ReviewStatus != models.ReviewStatusFlagged {
		t.Errorf("ReviewStatus = %q, want flagged", action.ReviewStatus)
	}
	if action.FlagPriority != models.FlagPriorityMajor {
		t.Errorf("FlagPriority = %q, want major", action.FlagPriority)
	}
	if len(action.ReviewTags) != 2 {
		t.Errorf("ReviewTags = %v", action.ReviewTags)
	}
}

func TestSetReviewStatusValidation(t *testing.T) {
	repo := newFakeActionRepo()
	svc := NewReviewService(repo)
	seedAction(t, repo, 1, 1, nil)

	_, err := svc.SetReviewStatus(context.Background(), testGameID, 1, ReviewUpdate{Status: "archived"})
	if !errors.Is(err, ErrInvalidReviewStatus) {
		t.Errorf("error = %v, want ErrInvalidReviewStatus", err)
	}

	_, err = svc.SetReviewStatus(context.Background(), testGameID, 1, ReviewUpdate{
		Status:   models.ReviewStatusFlagged,
		Priority: "urgent",
	})
	if !errors.Is(err, ErrInvalidFlagPriority) {
		t.Errorf("error = %v, want ErrInvalidFlagPriority", err)
	}

	_, err = svc.SetReviewStatus(context.Background(), testGameID, 404, ReviewUpdate{
		Status: models.ReviewStatusApproved,
	})
	if !errors.Is(err, ErrActionNotFound) {
		t.Errorf("error = %v, want ErrActionNotFound", err)
	}
}

func TestBatchApproveUnedited(t *testing.T) {
	repo := newFakeActionRepo()
	svc := NewReviewService(repo)

	seedAction(t, repo, 1, 1, nil) // unedited, unreviewed: approved
	seedAction(t, repo, 2, 1, func(a *models.Action) {
		a.HasSignificantEdit = true // edited: left for human review
	})
	seedAction(t, repo, 3, 1, func(a *models.Action) {
		a.ReviewStatus = models.ReviewStatusFlagged // already triaged: untouched
	})

	count, err := svc.BatchApproveUnedited(context.Background(), testGameID)
	if err != nil {
		t.Fatalf("BatchApproveUnedited() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	if got := repo.get(t, testGameID, 1).ReviewStatus; got != models.ReviewStatusApproved {
		t.Errorf("action 1 status = %q, want approved", got)
	}
	if got := repo.get(t, testGameID, 2).ReviewStatus; got != models.ReviewStatusUnreviewed {
		t.Errorf("action 2 status = %q, want unreviewed", got)
	}
	if got := repo.get(t, testGameID, 3).ReviewStatus; got != models.ReviewStatusFlagged {
		t.Errorf("action 3 status = %q, want flagged", got)
	}
}

func TestClearAllReviews(t *testing.T) {
	repo := newFakeActionRepo()
	svc := NewReviewService(repo)

	seedAction(t, repo, 1, 1, func(a *models.Action) {
		now := time.Now()
		a.ReviewStatus = models.ReviewStatusFlagged
		a.ReviewedAt = &now
		a.ReviewNote = "look again"
		a.ReviewTags = []string{"scoring"}
		a.FlagPriority = models.FlagPriorityMinor
		a.WasReEditedAfterApproval = true
	})

	count, err := svc.ClearAllReviews(context.Background(), testGameID)
	if err != nil {
		t.Fatalf("ClearAllReviews() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	a := repo.get(t, testGameID, 1)
	if a.ReviewStatus != models.ReviewStatusUnreviewed || a.ReviewedAt != nil ||
		a.ReviewNote != "" || a.ReviewTags != nil || a.FlagPriority != "" ||
		a.WasReEditedAfterApproval {
		t.Errorf("review state not fully reset: %+v", a)
	}
}

func TestActionsByPeriod(t *testing.T) {
	repo := newFakeActionRepo()
	svc := NewReviewService(repo)

	seedAction(t, repo, 30, 2, nil)
	seedAction(t, repo, 1, 1, nil)
	seedAction(t, repo, 2, 1, nil)
	seedAction(t, repo, 55, 4, nil)

	groups, err := svc.ActionsByPeriod(context.Background(), testGameID)
	if err != nil {
		t.Fatalf("ActionsByPeriod() error = %v", err)
	}

	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}
	wantPeriods := []int{1, 2, 4}
	for i, g := range groups {
		if g.Period != wantPeriods[i] {
			t.Errorf("groups[%d].Period = %d, want %d", i, g.Period, wantPeriods[i])
		}
	}
	if len(groups[0].Actions) != 2 {
		t.Errorf("period 1 actions = %d, want 2", len(groups[0].Actions))
	}
	if groups[0].Actions[0].ActionNumber != 1 || groups[0].Actions[1].ActionNumber != 2 {
		t.Error("period 1 actions not in play order")
	}
}

func TestEditedActions(t *testing.T) {
	repo := newFakeActionRepo()
	svc := NewReviewService(repo)

	seedAction(t, repo, 1, 1, nil)
	seedAction(t, repo, 2, 1, func(a *models.Action) { a.HasSignificantEdit = true })
	seedAction(t, repo, 3, 1, func(a *models.Action) { a.MarkDeleted(time.Now()) })

	actions, err := svc.EditedActions(context.Background(), testGameID)
	if err != nil {
		t.Fatalf("EditedActions() error = %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("len(actions) = %d, want 2", len(actions))
	}
	if actions[0].ActionNumber != 2 || actions[1].ActionNumber != 3 {
		t.Errorf("unexpected edited set: %d, %d", actions[0].ActionNumber, actions[1].ActionNumber)
	}
}

func TestStats(t *testing.T) {
	repo := newFakeActionRepo()
	svc := NewReviewService(repo)

	seedAction(t, repo, 1, 1, func(a *models.Action) {
		a.ReviewStatus = models.ReviewStatusApproved
	})
	seedAction(t, repo, 2, 1, func(a *models.Action) {
		a.ReviewStatus = models.ReviewStatusFlagged
		a.HasSignificantEdit = true
		a.EditCount = 2
		a.EditHistory = []models.EditRecord{
			{ID: uuid.New(), TimeDiff: 60},
			{ID: uuid.New(), TimeDiff: 180},
		}
	})
	seedAction(t, repo, 3, 1, nil)
	seedAction(t, repo, 4, 1, func(a *models.Action) { a.MarkDeleted(time.Now()) })

	stats, err := svc.Stats(context.Background(), testGameID)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if stats.TotalActions != 4 {
		t.Errorf("TotalActions = %d, want 4", stats.TotalActions)
	}
	if stats.EditedActions != 2 {
		t.Errorf("EditedActions = %d, want 2 (one edit, one deletion)", stats.EditedActions)
	}
	if stats.DeletedActions != 1 {
		t.Errorf("DeletedActions = %d, want 1", stats.DeletedActions)
	}
	if stats.Approved != 1 || stats.Flagged != 1 || stats.Unreviewed != 2 {
		t.Errorf("review tallies = %d/%d/%d, want 1/1/2",
			stats.Approved, stats.Flagged, stats.Unreviewed)
	}
	if stats.PercentReviewed != 50 {
		t.Errorf("PercentReviewed = %v, want 50", stats.PercentReviewed)
	}
	if stats.TotalEdits != 2 {
		t.Errorf("TotalEdits = %d, want 2", stats.TotalEdits)
	}
	if stats.AvgEditLatencySec != 120 {
		t.Errorf("AvgEditLatencySec = %v, want 120", stats.AvgEditLatencySec)
	}
}

func TestStatsEmptyGame(t *testing.T) {
	svc := NewReviewService(newFakeActionRepo())

	stats, err := svc.Stats(context.Background(), testGameID)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalActions != 0 || stats.PercentReviewed != 0 || stats.AvgEditLatencySec != 0 {
		t.Errorf("empty game stats not zero: %+v", stats)
	}
}
