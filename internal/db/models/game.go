// Package models contains the persistent data model for games and play-by-play actions.
package models

import "time"

// GameStatus represents the lifecycle state of a game as reported upstream.
type GameStatus string

// GameStatus constants define the possible game lifecycle states.
const (
	GameStatusScheduled GameStatus = "scheduled"
	GameStatusLive      GameStatus = "live"
	GameStatusFinal     GameStatus = "final"
)

// Game represents one game from the upstream schedule, with its live snapshot
// and the monitoring bookkeeping the scheduler maintains.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Game struct {
	GameID       string     `json:"game_id"`
	GameStatus   GameStatus `json:"game_status"`
	GameTimeUTC  time.Time  `json:"game_time_utc"`
	HomeTeamID   int        `json:"home_team_id"`
	HomeTricode  string     `json:"home_tricode"`
	HomeScore    int        `json:"home_score"`
	AwayTeamID   int        `json:"away_team_id"`
	AwayTricode  string     `json:"away_tricode"`
	AwayScore    int        `json:"away_score"`
	Period       int        `json:"period"`
	GameClock    string     `json:"game_clock"`
	ArenaName    string     `json:"arena_name"`
	ArenaCity    string     `json:"arena_city"`
	Attendance   int        `json:"attendance"`

	// Monitoring control. IsRefreshing is a cooperative advisory lock: the poll
	// cycle must skip any game holding it, and every fresh-start path must clear
	// it on exit.
	IsMonitoring        bool       `json:"is_monitoring"`
	IsRefreshing        bool       `json:"is_refreshing"`
	MonitoringStartedAt *time.Time `json:"monitoring_started_at"`
	RefreshStartedAt    *time.Time `json:"refresh_started_at"`
	LastPolledAt        *time.Time `json:"last_polled_at"`
	LastActivityAt      *time.Time `json:"last_activity_at"`
	PollCount           int        `json:"poll_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewGame creates a Game record for a schedule entry.
func NewGame(gameID string, status GameStatus, gameTimeUTC time.Time) *Game {
	now := time.Now()
	return &Game{
		GameID:      gameID,
		GameStatus:  status,
		GameTimeUTC: gameTimeUTC,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyBoxScore copies the live box-score summary into the game record and
// reports whether any scoring activity (score or period) changed.
func (g *Game) ApplyBoxScore(status GameStatus, homeScore, awayScore, period int, clock string, now time.Time) bool {
	changed := g.HomeScore != homeScore || g.AwayScore != awayScore || g.Period != period

	g.GameStatus = status
	g.HomeScore = homeScore
	g.AwayScore = awayScore
	g.Period = period
	g.GameClock = clock
	g.UpdatedAt = now

	if changed {
		t := now
		g.LastActivityAt = &t
	}
	return changed
}

// FinishedLongerThan reports whether the game is final and has shown no scoring
// activity for at least the given duration. Used by the scheduler's automatic
// stop-monitoring rule.
//
// Only stable timestamps may anchor the quiet window: UpdatedAt moves on every
// poll, so a game that is already final when monitoring begins would never
// look quiet against it. A game with no recorded activity falls back to when
// monitoring started, then to tip-off.
func (g *Game) FinishedLongerThan(d time.Duration, now time.Time) bool {
	if g.GameStatus != GameStatusFinal {
		return false
	}
	last := g.GameTimeUTC
	switch {
	case g.LastActivityAt != nil:
		last = *g.LastActivityAt
	case g.MonitoringStartedAt != nil:
		last = *g.MonitoringStartedAt
	}
	return now.Sub(last) >= d
}
