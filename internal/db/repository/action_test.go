package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/pbp-edit-monitor-go/internal/db"
	"github.com/courtside/pbp-edit-monitor-go/internal/db/models"
	"github.com/courtside/pbp-edit-monitor-go/internal/db/testutil"
)

func seedGame(t *testing.T, td *testutil.TestDatabase, gameID string) {
	t.Helper()
	repo := NewGameRepository(td.Pool)
	game := models.NewGame(gameID, models.GameStatusLive, time.Date(2026, 1, 15, 0, 12, 0, 0, time.UTC))
	require.NoError(t, repo.Upsert(context.Background(), game))
}

func storedAction(gameID string, number int) *models.Action {
	edited := time.Date(2026, 1, 15, 0, 30, 0, 0, time.UTC)
	return models.NewAction(gameID, number, models.ActionSnapshot{
		Description: "Smith 15' Jump Shot (2 PTS)",
		Clock:       "PT10M00.00S",
		Period:      1,
		TeamTricode: "LAL",
		ActionType:  "2pt",
		PersonID:    201,
		PlayerName:  "Smith",
		ShotResult:  "Made",
		ScoreHome:   "2",
		ScoreAway:   "0",
		Edited:      edited,
		TimeActual:  edited.Add(-5 * time.Second),
	})
}

func TestActionRepository_SaveAndGet(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := NewActionRepository(td.Pool)
	ctx := context.Background()

	t.Run("round-trips all fields", func(t *testing.T) {
		td.TruncateTables(t)
		seedGame(t, td, "0022500001")

		action := storedAction("0022500001", 7)
		action.EditHistory = []models.EditRecord{
			{
				ID:             uuid.New(),
				EditedAt:       time.Date(2026, 1, 15, 0, 35, 0, 0, time.UTC),
				OldDescription: "MISS Smith 15' Jump Shot",
				NewDescription: "Smith 15' Jump Shot (2 PTS)",
				TimeDiff:       120,
				FieldsChanged:  []string{"description"},
			},
		}
		action.EditCount = 1
		action.LastEditTimeDiff = 120
		action.HasSignificantEdit = true
		action.ReviewTags = []string{"scoring"}

		require.NoError(t, repo.Save(ctx, action))

		got, err := repo.Get(ctx, "0022500001", 7)
		require.NoError(t, err)
		assert.Equal(t, "Smith 15' Jump Shot (2 PTS)", got.Description)
		assert.Equal(t, "LAL", got.TeamTricode)
		assert.True(t, got.Edited.Equal(action.Edited))
		assert.True(t, got.InitialEdited.Equal(action.InitialEdited))
		require.Len(t, got.EditHistory, 1)
		assert.Equal(t, "MISS Smith 15' Jump Shot", got.EditHistory[0].OldDescription)
		assert.Equal(t, []string{"description"}, got.EditHistory[0].FieldsChanged)
		assert.Equal(t, float64(120), got.LastEditTimeDiff)
		assert.True(t, got.HasSignificantEdit)
		assert.Equal(t, []string{"scoring"}, got.ReviewTags)
		assert.Equal(t, models.ReviewStatusUnreviewed, got.ReviewStatus)
	})

	t.Run("returns not found for unknown action", func(t *testing.T) {
		td.TruncateTables(t)

		_, err := repo.Get(ctx, "0022500001", 404)
		require.Error(t, err)
		assert.True(t, db.IsNotFound(err))
	})

	t.Run("upsert never overwrites the initial baseline", func(t *testing.T) {
		td.TruncateTables(t)
		seedGame(t, td, "0022500001")

		action := storedAction("0022500001", 7)
		original := action.InitialEdited
		require.NoError(t, repo.Save(ctx, action))

		// A later save carries a moved baseline; the stored one must win.
		action.InitialEdited = original.Add(time.Hour)
		action.Description = "Smith 16' Jump Shot (2 PTS)"
		require.NoError(t, repo.Save(ctx, action))

		got, err := repo.Get(ctx, "0022500001", 7)
		require.NoError(t, err)
		assert.Equal(t, "Smith 16' Jump Shot (2 PTS)", got.Description)
		assert.True(t, got.InitialEdited.Equal(original))
	})
}

func TestActionRepository_SaveAllAndList(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := NewActionRepository(td.Pool)
	ctx := context.Background()

	t.Run("saves a batch and lists in action order", func(t *testing.T) {
		td.TruncateTables(t)
		seedGame(t, td, "0022500001")

		batch := []*models.Action{
			storedAction("0022500001", 3),
			storedAction("0022500001", 1),
			storedAction("0022500001", 2),
		}
		require.NoError(t, repo.SaveAll(ctx, batch))

		actions, err := repo.ListByGame(ctx, "0022500001")
		require.NoError(t, err)
		require.Len(t, actions, 3)
		assert.Equal(t, 1, actions[0].ActionNumber)
		assert.Equal(t, 2, actions[1].ActionNumber)
		assert.Equal(t, 3, actions[2].ActionNumber)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		td.TruncateTables(t)
		require.NoError(t, repo.SaveAll(ctx, nil))
	})

	t.Run("list edited filters on the significant flag", func(t *testing.T) {
		td.TruncateTables(t)
		seedGame(t, td, "0022500001")

		plain := storedAction("0022500001", 1)
		edited := storedAction("0022500001", 2)
		edited.HasSignificantEdit = true
		deleted := storedAction("0022500001", 3)
		deleted.MarkDeleted(time.Now())
		require.NoError(t, repo.SaveAll(ctx, []*models.Action{plain, edited, deleted}))

		actions, err := repo.ListEdited(ctx, "0022500001")
		require.NoError(t, err)
		require.Len(t, actions, 2)
		assert.Equal(t, 2, actions[0].ActionNumber)
		assert.Equal(t, 3, actions[1].ActionNumber)
		assert.True(t, actions[1].IsDeleted)
	})

	t.Run("delete by game wipes only that game", func(t *testing.T) {
		td.TruncateTables(t)
		seedGame(t, td, "0022500001")
		seedGame(t, td, "0022500002")

		require.NoError(t, repo.Save(ctx, storedAction("0022500001", 1)))
		require.NoError(t, repo.Save(ctx, storedAction("0022500002", 1)))

		require.NoError(t, repo.DeleteByGame(ctx, "0022500001"))

		actions, err := repo.ListByGame(ctx, "0022500001")
		require.NoError(t, err)
		assert.Empty(t, actions)

		actions, err = repo.ListByGame(ctx, "0022500002")
		require.NoError(t, err)
		assert.Len(t, actions, 1)
	})
}

func TestActionRepository_ReviewBatches(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := NewActionRepository(td.Pool)
	ctx := context.Background()

	t.Run("batch approve touches only unedited unreviewed actions", func(t *testing.T) {
		td.TruncateTables(t)
		seedGame(t, td, "0022500001")

		clean := storedAction("0022500001", 1)
		edited := storedAction("0022500001", 2)
		edited.HasSignificantEdit = true
		flagged := storedAction("0022500001", 3)
		flagged.ReviewStatus = models.ReviewStatusFlagged
		require.NoError(t, repo.SaveAll(ctx, []*models.Action{clean, edited, flagged}))

		count, err := repo.BatchApproveUnedited(ctx, "0022500001")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		got, err := repo.Get(ctx, "0022500001", 1)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusApproved, got.ReviewStatus)
		assert.NotNil(t, got.ReviewedAt)

		got, err = repo.Get(ctx, "0022500001", 2)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusUnreviewed, got.ReviewStatus)

		got, err = repo.Get(ctx, "0022500001", 3)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusFlagged, got.ReviewStatus)
	})

	t.Run("clear reviews resets the whole game", func(t *testing.T) {
		td.TruncateTables(t)
		seedGame(t, td, "0022500001")

		reviewed := storedAction("0022500001", 1)
		now := time.Now()
		reviewed.ReviewStatus = models.ReviewStatusFlagged
		reviewed.ReviewedAt = &now
		reviewed.ReviewNote = "look again"
		reviewed.ReviewTags = []string{"scoring"}
		reviewed.FlagPriority = models.FlagPriorityMajor
		reviewed.WasReEditedAfterApproval = true
		require.NoError(t, repo.Save(ctx, reviewed))

		count, err := repo.ClearReviews(ctx, "0022500001")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		got, err := repo.Get(ctx, "0022500001", 1)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusUnreviewed, got.ReviewStatus)
		assert.Nil(t, got.ReviewedAt)
		assert.Empty(t, got.ReviewNote)
		assert.Nil(t, got.ReviewTags)
		assert.Empty(t, string(got.FlagPriority))
		assert.False(t, got.WasReEditedAfterApproval)
	})
}
