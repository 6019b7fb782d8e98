// Package service provides the monitoring, synchronization and review logic.
package service

import (
	"regexp"
	"strings"

	"github.com/courtside/pbp-edit-monitor-go/internal/db/models"
)

// actionTypeSubstitution is the upstream action type for personnel changes.
// Substitution rows get rewritten constantly as lineups settle and are never
// editorially interesting.
const actionTypeSubstitution = "substitution"

// trailingStatCount matches a running-total suffix like " (2)" at the end of a
// description, e.g. "Smith Assist (2)".
var trailingStatCount = regexp.MustCompile(`\s*\(\d+\)$`)

// IsSignificantEdit decides whether an observed change to an action warrants
// human review. Pure; rules apply in order and the first failing rule wins.
func IsSignificantEdit(old, new models.ActionSnapshot) bool {
	// First sight is baseline, never an edit. The sync engine enforces this
	// upstream; restated here as a precondition.
	if old.Description == "" {
		return false
	}

	if old.ActionType == actionTypeSubstitution || new.ActionType == actionTypeSubstitution {
		return false
	}

	if old.Description == new.Description {
		return false
	}

	// Cascading-stat filter: if the only difference is a trailing running
	// total, the change was caused by an unrelated edit elsewhere
	// recalculating a counter, not by a correction to this action.
	if stripTrailingStatCount(old.Description) == stripTrailingStatCount(new.Description) {
		return false
	}

	return true
}

func stripTrailingStatCount(description string) string {
	return strings.TrimSpace(trailingStatCount.ReplaceAllString(description, ""))
}
