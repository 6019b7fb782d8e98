package models

import (
	"time"

	"github.com/google/uuid"
)

// ReviewStatus represents the operator triage state of an action.
type ReviewStatus string

// ReviewStatus constants define the possible triage states.
const (
	ReviewStatusUnreviewed ReviewStatus = "unreviewed"
	ReviewStatusApproved   ReviewStatus = "approved"
	ReviewStatusFlagged    ReviewStatus = "flagged"
)

// FlagPriority represents how urgent a flagged action is.
type FlagPriority string

// FlagPriority constants define the supported priorities.
const (
	FlagPriorityMinor FlagPriority = "minor"
	FlagPriorityMajor FlagPriority = "major"
)

// ActionSnapshot is the fixed set of tracked fields for one play-by-play
// action. The edit classifier and change detection operate on this shape only;
// adding a field here is what makes it participate in diffing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ActionSnapshot struct {
	Description string    `json:"description"`
	Clock       string    `json:"clock"`
	Period      int       `json:"period"`
	TeamTricode string    `json:"team_tricode"`
	ActionType  string    `json:"action_type"`
	SubType     string    `json:"sub_type"`
	PersonID    int       `json:"person_id"`
	PlayerName  string    `json:"player_name"`
	ShotResult  string    `json:"shot_result"`
	ScoreHome   string    `json:"score_home"`
	ScoreAway   string    `json:"score_away"`
	Edited      time.Time `json:"edited"`
	TimeActual  time.Time `json:"time_actual"`
}

// ChangedFields returns the names of tracked fields whose values differ
// between the two snapshots. The upstream's own bookkeeping timestamps
// (edited, timeActual) are not part of the tracked set.
func ChangedFields(old, new ActionSnapshot) []string {
	var changed []string
	if old.Description != new.Description {
		changed = append(changed, "description")
	}
	if old.Clock != new.Clock {
		changed = append(changed, "clock")
	}
	if old.Period != new.Period {
		changed = append(changed, "period")
	}
	if old.TeamTricode != new.TeamTricode {
		changed = append(changed, "teamTricode")
	}
	if old.ActionType != new.ActionType {
		changed = append(changed, "actionType")
	}
	if old.SubType != new.SubType {
		changed = append(changed, "subType")
	}
	if old.PersonID != new.PersonID {
		changed = append(changed, "personId")
	}
	if old.PlayerName != new.PlayerName {
		changed = append(changed, "playerName")
	}
	if old.ShotResult != new.ShotResult {
		changed = append(changed, "shotResult")
	}
	if old.ScoreHome != new.ScoreHome {
		changed = append(changed, "scoreHome")
	}
	if old.ScoreAway != new.ScoreAway {
		changed = append(changed, "scoreAway")
	}
	return changed
}

// EditRecord is one detected upstream edit, append-only within an action's
// history. Records are ordered by detection time, not by upstream edit time.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type EditRecord struct {
	ID             uuid.UUID      `json:"id"`
	EditedAt       time.Time      `json:"edited_at"`
	OldDescription string         `json:"old_description"`
	NewDescription string         `json:"new_description"`
	OldData        ActionSnapshot `json:"old_data"`
	NewData        ActionSnapshot `json:"new_data"`
	TimeDiff       float64        `json:"time_diff"`
	FieldsChanged  []string       `json:"fields_changed"`
}

// Action is the locally owned, versioned mirror of one upstream play-by-play
// event, keyed by (gameID, actionNumber) for its entire lifetime including
// delete/restore cycles.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Action struct {
	GameID       string `json:"game_id"`
	ActionNumber int    `json:"action_number"`

	ActionSnapshot

	// InitialEdited is the upstream edit timestamp captured the first time the
	// action was observed. Set exactly once; all change detection is measured
	// against it.
	InitialEdited time.Time `json:"initial_edited"`

	EditHistory        []EditRecord `json:"edit_history"`
	EditCount          int          `json:"edit_count"`
	LastEditTimeDiff   float64      `json:"last_edit_time_diff"`
	HasSignificantEdit bool         `json:"has_significant_edit"`

	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at"`

	ReviewStatus             ReviewStatus `json:"review_status"`
	ReviewedAt               *time.Time   `json:"reviewed_at"`
	ReviewNote               string       `json:"review_note"`
	ReviewTags               []string     `json:"review_tags"`
	FlagPriority             FlagPriority `json:"flag_priority"`
	WasReEditedAfterApproval bool         `json:"was_re_edited_after_approval"`

	FirstSeenAt time.Time `json:"first_seen_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewAction creates an Action from its first observed snapshot. First sight is
// baseline, not an edit: no history entry and no significant-edit flag.
func NewAction(gameID string, actionNumber int, snap ActionSnapshot) *Action {
	now := time.Now()
	return &Action{
		GameID:         gameID,
		ActionNumber:   actionNumber,
		ActionSnapshot: snap,
		InitialEdited:  snap.Edited,
		ReviewStatus:   ReviewStatusUnreviewed,
		FirstSeenAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Snapshot returns the action's current tracked-field values.
func (a *Action) Snapshot() ActionSnapshot {
	return a.ActionSnapshot
}

// ApplySnapshot overwrites the tracked fields with freshly fetched values.
func (a *Action) ApplySnapshot(snap ActionSnapshot) {
	a.ActionSnapshot = snap
	a.UpdatedAt = time.Now()
}

// MarkDeleted soft-deletes the action. A deletion is always significant.
func (a *Action) MarkDeleted(now time.Time) {
	a.IsDeleted = true
	t := now
	a.DeletedAt = &t
	a.HasSignificantEdit = true
	a.UpdatedAt = now
}

// Restore clears the deletion flags after the action reappears upstream.
func (a *Action) Restore() {
	a.IsDeleted = false
	a.DeletedAt = nil
	a.UpdatedAt = time.Now()
}

// RecordEdit appends an edit record and updates the derived edit counters. If
// the action had already been approved, it is sent back for human review.
func (a *Action) RecordEdit(rec EditRecord) {
	a.EditHistory = append(a.EditHistory, rec)
	a.EditCount++
	a.LastEditTimeDiff = rec.TimeDiff
	a.HasSignificantEdit = true

	if a.ReviewStatus == ReviewStatusApproved {
		a.ReviewStatus = ReviewStatusUnreviewed
		a.ReviewedAt = nil
		a.WasReEditedAfterApproval = true
	}
	a.UpdatedAt = rec.EditedAt
}

// ClearReview resets all review fields for re-triage.
func (a *Action) ClearReview() {
	a.ReviewStatus = ReviewStatusUnreviewed
	a.ReviewedAt = nil
	a.ReviewNote = ""
	a.ReviewTags = nil
	a.FlagPriority = ""
	a.WasReEditedAfterApproval = false
	a.UpdatedAt = time.Now()
}
