// Package repository provides data access for games and play-by-play actions.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtside/pbp-edit-monitor-go/internal/db"
	"github.com/courtside/pbp-edit-monitor-go/internal/db/models"
)

// GameRepository defines operations for managing game records.
type GameRepository interface {
	// Upsert creates a new game or updates an existing one.
	Upsert(ctx context.Context, game *models.Game) error

	// Get retrieves a single game by ID.
	Get(ctx context.Context, gameID string) (*models.Game, error)

	// List retrieves all games ordered by tip-off time.
	List(ctx context.Context) ([]*models.Game, error)

	// ListMonitorable retrieves games eligible for polling: monitoring is on
	// and no fresh-start refresh is in progress.
	ListMonitorable(ctx context.Context) ([]*models.Game, error)

	// ClearStaleRefreshLocks releases refresh locks older than the cutoff and
	// returns how many were cleared. Run once at startup so a crash mid
	// fresh-start cannot exclude a game from polling forever.
	ClearStaleRefreshLocks(ctx context.Context, cutoff time.Time) (int64, error)
}

type gameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository.
func NewGameRepository(pool *pgxpool.Pool) GameRepository {
	return &gameRepository{pool: pool}
}

const gameColumns = `game_id, game_status, game_time_utc,
	home_team_id, home_tricode, home_score,
	away_team_id, away_tricode, away_score,
	period, game_clock, arena_name, arena_city, attendance,
	is_monitoring, is_refreshing, monitoring_started_at, refresh_started_at,
	last_polled_at, last_activity_at, poll_count, created_at, updated_at`

func (r *gameRepository) Upsert(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (` + gameColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (game_id) DO UPDATE
		SET game_status = EXCLUDED.game_status,
		    game_time_utc = EXCLUDED.game_time_utc,
		    home_team_id = EXCLUDED.home_team_id,
		    home_tricode = EXCLUDED.home_tricode,
		    home_score = EXCLUDED.home_score,
		    away_team_id = EXCLUDED.away_team_id,
		    away_tricode = EXCLUDED.away_tricode,
		    away_score = EXCLUDED.away_score,
		    period = EXCLUDED.period,
		    game_clock = EXCLUDED.game_clock,
		    arena_name = EXCLUDED.arena_name,
		    arena_city = EXCLUDED.arena_city,
		    attendance = EXCLUDED.attendance,
		    is_monitoring = EXCLUDED.is_monitoring,
		    is_refreshing = EXCLUDED.is_refreshing,
		    monitoring_started_at = EXCLUDED.monitoring_started_at,
		    refresh_started_at = EXCLUDED.refresh_started_at,
		    last_polled_at = EXCLUDED.last_polled_at,
		    last_activity_at = EXCLUDED.last_activity_at,
		    poll_count = EXCLUDED.poll_count,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		game.GameID,
		game.GameStatus,
		game.GameTimeUTC,
		game.HomeTeamID,
		game.HomeTricode,
		game.HomeScore,
		game.AwayTeamID,
		game.AwayTricode,
		game.AwayScore,
		game.Period,
		game.GameClock,
		game.ArenaName,
		game.ArenaCity,
		game.Attendance,
		game.IsMonitoring,
		game.IsRefreshing,
		game.MonitoringStartedAt,
		game.RefreshStartedAt,
		game.LastPolledAt,
		game.LastActivityAt,
		game.PollCount,
		game.CreatedAt,
		game.UpdatedAt,
	)

	if err != nil {
		return db.WrapError(err, "upsert game")
	}

	return nil
}

func (r *gameRepository) Get(ctx context.Context, gameID string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE game_id = $1`

	game, err := scanGame(r.pool.QueryRow(ctx, query, gameID))
	if err != nil {
		return nil, db.WrapError(err, "get game")
	}

	return game, nil
}

func (r *gameRepository) List(ctx context.Context) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY game_time_utc, game_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list games")
	}
	defer rows.Close()

	return scanGames(rows)
}

func (r *gameRepository) ListMonitorable(ctx context.Context) ([]*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE is_monitoring = TRUE AND is_refreshing = FALSE
		ORDER BY game_time_utc, game_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list monitorable games")
	}
	defer rows.Close()

	return scanGames(rows)
}

func (r *gameRepository) ClearStaleRefreshLocks(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE games
		SET is_refreshing = FALSE, refresh_started_at = NULL, updated_at = NOW()
		WHERE is_refreshing = TRUE AND refresh_started_at < $1
	`

	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, db.WrapError(err, "clear stale refresh locks")
	}

	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*models.Game, error) {
	game := &models.Game{}
	err := row.Scan(
		&game.GameID,
		&game.GameStatus,
		&game.GameTimeUTC,
		&game.HomeTeamID,
		&game.HomeTricode,
		&game.HomeScore,
		&game.AwayTeamID,
		&game.AwayTricode,
		&game.AwayScore,
		&game.Period,
		&game.GameClock,
		&game.ArenaName,
		&game.ArenaCity,
		&game.Attendance,
		&game.IsMonitoring,
		&game.IsRefreshing,
		&game.MonitoringStartedAt,
		&game.RefreshStartedAt,
		&game.LastPolledAt,
		&game.LastActivityAt,
		&game.PollCount,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return game, nil
}

// Helper function to scan multiple games from query results
func scanGames(rows pgx.Rows) ([]*models.Game, error) {
	var games []*models.Game

	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}

	return games, nil
}
