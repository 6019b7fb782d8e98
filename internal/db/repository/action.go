package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtside/pbp-edit-monitor-go/internal/db"
	"github.com/courtside/pbp-edit-monitor-go/internal/db/models"
)

// ActionRepository defines operations for managing play-by-play actions.
type ActionRepository interface {
	// Get retrieves a single action by its composite key.
	Get(ctx context.Context, gameID string, actionNumber int) (*models.Action, error)

	// ListByGame retrieves all actions for a game ordered by action number,
	// including soft-deleted ones.
	ListByGame(ctx context.Context, gameID string) ([]*models.Action, error)

	// ListEdited retrieves actions carrying a significant edit or deletion.
	ListEdited(ctx context.Context, gameID string) ([]*models.Action, error)

	// Save upserts a single action.
	Save(ctx context.Context, action *models.Action) error

	// SaveAll upserts a sync's touched actions in one transaction so a
	// reconciliation either fully commits or not at all.
	SaveAll(ctx context.Context, actions []*models.Action) error

	// DeleteByGame removes all stored actions for a game. Used only by the
	// fresh-start sequence before rebaselining.
	DeleteByGame(ctx context.Context, gameID string) error

	// BatchApproveUnedited approves every unreviewed action without a
	// significant edit and returns the number affected.
	BatchApproveUnedited(ctx context.Context, gameID string) (int64, error)

	// ClearReviews resets review fields on every action for the game and
	// returns the number affected.
	ClearReviews(ctx context.Context, gameID string) (int64, error)
}

type actionRepository struct {
	pool *pgxpool.Pool
}

// NewActionRepository creates a new ActionRepository.
func NewActionRepository(pool *pgxpool.Pool) ActionRepository {
	return &actionRepository{pool: pool}
}

const actionColumns = `game_id, action_number, description, clock, period,
	team_tricode, action_type, sub_type, person_id, player_name, shot_result,
	score_home, score_away, edited, time_actual, initial_edited,
	edit_history, edit_count, last_edit_time_diff, has_significant_edit,
	is_deleted, deleted_at,
	review_status, reviewed_at, review_note, review_tags, flag_priority,
	was_re_edited_after_approval, first_seen_at, created_at, updated_at`

const upsertActionQuery = `
	INSERT INTO actions (` + actionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28,
	        $29, $30, $31)
	ON CONFLICT (game_id, action_number) DO UPDATE
	SET description = EXCLUDED.description,
	    clock = EXCLUDED.clock,
	    period = EXCLUDED.period,
	    team_tricode = EXCLUDED.team_tricode,
	    action_type = EXCLUDED.action_type,
	    sub_type = EXCLUDED.sub_type,
	    person_id = EXCLUDED.person_id,
	    player_name = EXCLUDED.player_name,
	    shot_result = EXCLUDED.shot_result,
	    score_home = EXCLUDED.score_home,
	    score_away = EXCLUDED.score_away,
	    edited = EXCLUDED.edited,
	    time_actual = EXCLUDED.time_actual,
	    edit_history = EXCLUDED.edit_history,
	    edit_count = EXCLUDED.edit_count,
	    last_edit_time_diff = EXCLUDED.last_edit_time_diff,
	    has_significant_edit = EXCLUDED.has_significant_edit,
	    is_deleted = EXCLUDED.is_deleted,
	    deleted_at = EXCLUDED.deleted_at,
	    review_status = EXCLUDED.review_status,
	    reviewed_at = EXCLUDED.reviewed_at,
	    review_note = EXCLUDED.review_note,
	    review_tags = EXCLUDED.review_tags,
	    flag_priority = EXCLUDED.flag_priority,
	    was_re_edited_after_approval = EXCLUDED.was_re_edited_after_approval,
	    updated_at = EXCLUDED.updated_at
`

// initial_edited is deliberately absent from the conflict update list: the
// baseline is written once on insert and never overwritten.

func (r *actionRepository) Get(ctx context.Context, gameID string, actionNumber int) (*models.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE game_id = $1 AND action_number = $2`

	action, err := scanAction(r.pool.QueryRow(ctx, query, gameID, actionNumber))
	if err != nil {
		return nil, db.WrapError(err, "get action")
	}

	return action, nil
}

func (r *actionRepository) ListByGame(ctx context.Context, gameID string) ([]*models.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE game_id = $1 ORDER BY action_number`

	rows, err := r.pool.Query(ctx, query, gameID)
	if err != nil {
		return nil, db.WrapError(err, "list actions by game")
	}
	defer rows.Close()

	return scanActions(rows)
}

func (r *actionRepository) ListEdited(ctx context.Context, gameID string) ([]*models.Action, error) {
	query := `
		SELECT ` + actionColumns + `
		FROM actions
		WHERE game_id = $1 AND has_significant_edit = TRUE
		ORDER BY action_number
	`

	rows, err := r.pool.Query(ctx, query, gameID)
	if err != nil {
		return nil, db.WrapError(err, "list edited actions")
	}
	defer rows.Close()

	return scanActions(rows)
}

func (r *actionRepository) Save(ctx context.Context, action *models.Action) error {
	args, err := upsertArgs(action)
	if err != nil {
		return fmt.Errorf("save action: %w", err)
	}

	if _, err := r.pool.Exec(ctx, upsertActionQuery, args...); err != nil {
		return db.WrapError(err, "save action")
	}

	return nil
}

func (r *actionRepository) SaveAll(ctx context.Context, actions []*models.Action) error {
	if len(actions) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return db.WrapError(err, "begin save all actions")
	}
	defer tx.Rollback(ctx) // Rollback is safe to call even if committed

	for _, action := range actions {
		args, err := upsertArgs(action)
		if err != nil {
			return fmt.Errorf("save all actions: %w", err)
		}
		if _, err := tx.Exec(ctx, upsertActionQuery, args...); err != nil {
			return db.WrapError(err, "save all actions")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return db.WrapError(err, "commit save all actions")
	}

	return nil
}

func (r *actionRepository) DeleteByGame(ctx context.Context, gameID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM actions WHERE game_id = $1`, gameID); err != nil {
		return db.WrapError(err, "delete actions by game")
	}
	return nil
}

func (r *actionRepository) BatchApproveUnedited(ctx context.Context, gameID string) (int64, error) {
	query := `
		UPDATE actions
		SET review_status = $1, reviewed_at = NOW(), updated_at = NOW()
		WHERE game_id = $2
		  AND has_significant_edit = FALSE
		  AND review_status = $3
	`

	tag, err := r.pool.Exec(ctx, query, models.ReviewStatusApproved, gameID, models.ReviewStatusUnreviewed)
	if err != nil {
		return 0, db.WrapError(err, "batch approve unedited")
	}

	return tag.RowsAffected(), nil
}

func (r *actionRepository) ClearReviews(ctx context.Context, gameID string) (int64, error) {
	query := `
		UPDATE actions
		SET review_status = $1,
		    reviewed_at = NULL,
		    review_note = '',
		    review_tags = '[]',
		    flag_priority = '',
		    was_re_edited_after_approval = FALSE,
		    updated_at = NOW()
		WHERE game_id = $2
	`

	tag, err := r.pool.Exec(ctx, query, models.ReviewStatusUnreviewed, gameID)
	if err != nil {
		return 0, db.WrapError(err, "clear reviews")
	}

	return tag.RowsAffected(), nil
}

func upsertArgs(action *models.Action) ([]any, error) {
	history, err := json.Marshal(action.EditHistory)
	if err != nil {
		return nil, fmt.Errorf("marshal edit history: %w", err)
	}

	tags := action.ReviewTags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal review tags: %w", err)
	}

	return []any{
		action.GameID,
		action.ActionNumber,
		action.Description,
		action.Clock,
		action.Period,
		action.TeamTricode,
		action.ActionType,
		action.SubType,
		action.PersonID,
		action.PlayerName,
		action.ShotResult,
		action.ScoreHome,
		action.ScoreAway,
		action.Edited,
		action.TimeActual,
		action.InitialEdited,
		history,
		action.EditCount,
		action.LastEditTimeDiff,
		action.HasSignificantEdit,
		action.IsDeleted,
		action.DeletedAt,
		action.ReviewStatus,
		action.ReviewedAt,
		action.ReviewNote,
		tagsJSON,
		action.FlagPriority,
		action.WasReEditedAfterApproval,
		action.FirstSeenAt,
		action.CreatedAt,
		action.UpdatedAt,
	}, nil
}

func scanAction(row rowScanner) (*models.Action, error) {
	action := &models.Action{}
	var history, tags []byte

	err := row.Scan(
		&action.GameID,
		&action.ActionNumber,
		&action.Description,
		&action.Clock,
		&action.Period,
		&action.TeamTricode,
		&action.ActionType,
		&action.SubType,
		&action.PersonID,
		&action.PlayerName,
		&action.ShotResult,
		&action.ScoreHome,
		&action.ScoreAway,
		&action.Edited,
		&action.TimeActual,
		&action.InitialEdited,
		&history,
		&action.EditCount,
		&action.LastEditTimeDiff,
		&action.HasSignificantEdit,
		&action.IsDeleted,
		&action.DeletedAt,
		&action.ReviewStatus,
		&action.ReviewedAt,
		&action.ReviewNote,
		&tags,
		&action.FlagPriority,
		&action.WasReEditedAfterApproval,
		&action.FirstSeenAt,
		&action.CreatedAt,
		&action.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(history) > 0 {
		if err := json.Unmarshal(history, &action.EditHistory); err != nil {
			return nil, fmt.Errorf("unmarshal edit history: %w", err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &action.ReviewTags); err != nil {
			return nil, fmt.Errorf("unmarshal review tags: %w", err)
		}
		if len(action.ReviewTags) == 0 {
			action.ReviewTags = nil
		}
	}

	return action, nil
}

// Helper function to scan multiple actions from query results
func scanActions(rows pgx.Rows) ([]*models.Action, error) {
	var actions []*models.Action

	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		actions = append(actions, action)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}

	return actions, nil
}
