package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/courtside/pbp-edit-monitor-go/internal/db/models"
	"github.com/courtside/pbp-edit-monitor-go/internal/db/repository"
	"github.com/courtside/pbp-edit-monitor-go/internal/feed"
	"github.com/courtside/pbp-edit-monitor-go/pkg/logger"
)

// SyncResult aggregates what one reconciliation pass did.
type SyncResult struct {
	Created          int         `json:"created"`
	Updated          int         `json:"updated"`
	Deleted          int         `json:"deleted"`
	Restored         int         `json:"restored"`
	SignificantEdits int         `json:"significant_edits"`
	Alerts           []EditAlert `json:"-"`
}

// EditAlert describes one reportable change for downstream consumers.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type EditAlert struct {
	GameID         string    `json:"game_id"`
	ActionNumber   int       `json:"action_number"`
	Kind           string    `json:"kind"` // "edit" or "deletion"
	OldDescription string    `json:"old_description"`
	NewDescription string    `json:"new_description"`
	TimeDiff       float64   `json:"time_diff"`
	FieldsChanged  []string  `json:"fields_changed"`
	DetectedAt     time.Time `json:"detected_at"`
}

// Alert kinds.
const (
	AlertKindEdit     = "edit"
	AlertKindDeletion = "deletion"
)

// SyncEngine reconciles a freshly fetched action list against the stored
// mirror for one game.
type SyncEngine struct {
	feed           feed.Client
	actions        repository.ActionRepository
	noiseThreshold time.Duration
	now            func() time.Time
}

// NewSyncEngine creates a SyncEngine. Edits whose |edited − timeActual| is
// below noiseThreshold are discarded as timing jitter.
func NewSyncEngine(feedClient feed.Client, actions repository.ActionRepository, noiseThreshold time.Duration) *SyncEngine {
	return &SyncEngine{
		feed:           feedClient,
		actions:        actions,
		noiseThreshold: noiseThreshold,
		now:            time.Now,
	}
}

// Sync fetches the game's current action list and reconciles it against the
// store: creates first-sight records, soft-deletes vanished actions, restores
// reappeared ones, and classifies every observed change. All touched records
// are persisted in one transaction.
func (e *SyncEngine) Sync(ctx context.Context, gameID string) (*SyncResult, error) {
	result := &SyncResult{}

	fetched, err := e.feed.GetPlayByPlay(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("sync game %s: %w", gameID, err)
	}
	if fetched == nil {
		// Feed not yet populated for this game. A no-op, not an error.
		return result, nil
	}

	stored, err := e.actions.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("sync game %s: %w", gameID, err)
	}

	storedByNumber := make(map[int]*models.Action, len(stored))
	for _, a := range stored {
		storedByNumber[a.ActionNumber] = a
	}

	present := make(map[int]bool, len(fetched))
	for _, fa := range fetched {
		present[fa.ActionNumber] = true
	}

	now := e.now()
	touched := make(map[int]*models.Action)

	// Deletions are detected before upserts so a restore-then-edit in the
	// same fetch is seen as "restored, then possibly edited".
	for _, a := range stored {
		if a.IsDeleted || present[a.ActionNumber] {
			continue
		}
		a.MarkDeleted(now)
		touched[a.ActionNumber] = a
		result.Deleted++
		result.Alerts = append(result.Alerts, EditAlert{
			GameID:         gameID,
			ActionNumber:   a.ActionNumber,
			Kind:           AlertKindDeletion,
			OldDescription: a.Description,
			DetectedAt:     now,
		})
	}

	for _, fa := range fetched {
		snap := fa.Snapshot()

		a, exists := storedByNumber[fa.ActionNumber]
		if !exists {
			a = models.NewAction(gameID, fa.ActionNumber, snap)
			touched[fa.ActionNumber] = a
			result.Created++
			continue
		}

		if a.IsDeleted {
			a.Restore()
			result.Restored++
		}

		old := a.Snapshot()
		a.ApplySnapshot(snap)
		touched[fa.ActionNumber] = a

		changed := models.ChangedFields(old, snap)
		if len(changed) > 0 {
			result.Updated++
		}

		// The upstream edit timestamp must have advanced past the baseline
		// captured at first sight; otherwise there is nothing to evaluate.
		if !snap.Edited.After(a.InitialEdited) {
			continue
		}

		timeDiff := math.Abs(snap.Edited.Sub(snap.TimeActual).Seconds())
		if timeDiff < e.noiseThreshold.Seconds() {
			// Too fast to be a genuine correction.
			continue
		}

		if !IsSignificantEdit(old, snap) {
			continue
		}

		a.RecordEdit(models.EditRecord{
			ID:             uuid.New(),
			EditedAt:       now,
			OldDescription: old.Description,
			NewDescription: snap.Description,
			OldData:        old,
			NewData:        snap,
			TimeDiff:       timeDiff,
			FieldsChanged:  changed,
		})
		result.SignificantEdits++
		result.Alerts = append(result.Alerts, EditAlert{
			GameID:         gameID,
			ActionNumber:   fa.ActionNumber,
			Kind:           AlertKindEdit,
			OldDescription: old.Description,
			NewDescription: snap.Description,
			TimeDiff:       timeDiff,
			FieldsChanged:  changed,
			DetectedAt:     now,
		})

		logger.Log.Info("Significant edit detected",
			zap.String("gameId", gameID),
			zap.Int("actionNumber", fa.ActionNumber),
			zap.String("oldDescription", old.Description),
			zap.String("newDescription", snap.Description),
			zap.Float64("timeDiff", timeDiff),
		)
	}

	if err := e.actions.SaveAll(ctx, sortedActions(touched)); err != nil {
		return nil, fmt.Errorf("sync game %s: %w", gameID, err)
	}

	return result, nil
}

// sortedActions flattens the touched set into deterministic order.
func sortedActions(touched map[int]*models.Action) []*models.Action {
	actions := make([]*models.Action, 0, len(touched))
	for _, a := range touched {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].ActionNumber < actions[j].ActionNumber
	})
	return actions
}
