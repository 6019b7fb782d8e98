package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/courtside/pbp-edit-monitor-go/internal/config"
	"github.com/courtside/pbp-edit-monitor-go/internal/db"
	"github.com/courtside/pbp-edit-monitor-go/internal/db/models"
	"github.com/courtside/pbp-edit-monitor-go/internal/db/repository"
	"github.com/courtside/pbp-edit-monitor-go/internal/feed"
	"github.com/courtside/pbp-edit-monitor-go/internal/metrics"
	"github.com/courtside/pbp-edit-monitor-go/pkg/logger"
)

// AlertSink receives detected edit alerts. Implementations must be safe for
// concurrent use; publish failures must not fail the sync that produced them.
type AlertSink interface {
	PublishAlert(ctx context.Context, alert EditAlert) error
}

// LiveCache mirrors the latest game summary for dashboard reads.
type LiveCache interface {
	WriteGameSummary(ctx context.Context, game *models.Game) error
}

// MonitorStats is a point-in-time snapshot of the scheduler's counters.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type MonitorStats struct {
	Running          bool          `json:"running"`
	CyclesRun        int64         `json:"cycles_run"`
	GamesPolled      int64         `json:"games_polled"`
	SyncErrors       int64         `json:"sync_errors"`
	SignificantEdits int64         `json:"significant_edits"`
	LastCycleAt      *time.Time    `json:"last_cycle_at"`
	CurrentInterval  time.Duration `json:"current_interval"`
}

// CycleResult reports what one polling cycle did and the interval to sleep
// before the next one.
type CycleResult struct {
	GamesPolled  int
	Errors       int
	NextInterval time.Duration
}

// Monitor is the top-level control loop: it selects monitorable games each
// cycle, drives the sync engine per game, manages game lifecycle transitions,
// and re-pulls the daily schedule on a cron.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Monitor struct {
	games   repository.GameRepository
	actions repository.ActionRepository
	syncer  *SyncEngine
	feed    feed.Client
	alerts  AlertSink // optional
	cache   LiveCache // optional
	cfg     config.MonitorConfig
	now     func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	stats   MonitorStats
	cron    *cron.Cron
}

// NewMonitor creates a Monitor with injected dependencies. alerts and cache
// may be nil; the corresponding integrations are then disabled.
func NewMonitor(
	games repository.GameRepository,
	actions repository.ActionRepository,
	syncer *SyncEngine,
	feedClient feed.Client,
	alerts AlertSink,
	cache LiveCache,
	cfg config.MonitorConfig,
) *Monitor {
	return &Monitor{
		games:   games,
		actions: actions,
		syncer:  syncer,
		feed:    feedClient,
		alerts:  alerts,
		cache:   cache,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start clears stale refresh locks, launches the polling loop, and schedules
// the daily schedule re-pull. It returns immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.stats.Running = true
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	m.mu.Unlock()

	// A crash mid fresh-start can leave a game locked out of polling.
	// Release anything stale before the first cycle.
	cutoff := m.now().Add(-m.cfg.RefreshLockGrace)
	cleared, err := m.games.ClearStaleRefreshLocks(ctx, cutoff)
	if err != nil {
		logger.Log.Warn("Failed to clear stale refresh locks", zap.Error(err))
	} else if cleared > 0 {
		logger.Log.Info("Cleared stale refresh locks", zap.Int64("count", cleared))
	}

	m.cron = cron.New()
	if _, err := m.cron.AddFunc(m.cfg.ScheduleCron, func() {
		if _, err := m.SyncSchedule(context.Background()); err != nil {
			logger.Log.Error("Scheduled schedule sync failed", zap.Error(err))
		}
	}); err != nil {
		m.mu.Lock()
		m.running = false
		m.stats.Running = false
		m.mu.Unlock()
		return fmt.Errorf("register schedule cron: %w", err)
	}
	m.cron.Start()

	go m.run()

	logger.Log.Info("Monitor started",
		zap.Duration("activeInterval", m.cfg.ActiveInterval),
		zap.Duration("idleInterval", m.cfg.IdleInterval),
		zap.String("scheduleCron", m.cfg.ScheduleCron),
	)
	return nil
}

// Stop prevents any further cycle from starting and waits for an in-flight
// cycle to finish. A pending sleep is aborted immediately.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.stats.Running = false
	close(m.stopCh)
	m.mu.Unlock()

	<-m.done
	if m.cron != nil {
		m.cron.Stop()
	}
	logger.Log.Info("Monitor stopped")
}

// Stats returns a copy of the scheduler's counters.
func (m *Monitor) Stats() MonitorStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Monitor) run() {
	defer close(m.done)

	for {
		// Cycles run on a background context: Stop aborts the sleep between
		// cycles, never a cycle in flight. Feed fetches carry their own
		// timeouts.
		result := m.RunCycle(context.Background())

		timer := time.NewTimer(result.NextInterval)
		select {
		case <-m.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunCycle executes one polling pass over all monitorable games. Per-game
// failures are logged and counted; they never abort the cycle for other games.
func (m *Monitor) RunCycle(ctx context.Context) CycleResult {
	started := m.now()
	result := CycleResult{NextInterval: m.cfg.IdleInterval}

	games, err := m.games.ListMonitorable(ctx)
	if err != nil {
		logger.Log.Error("Failed to list monitorable games", zap.Error(err))
		m.recordCycle(result, started)
		return result
	}

	if len(games) > 0 {
		result.NextInterval = m.cfg.ActiveInterval
	}
	metrics.ActiveGames.Set(float64(len(games)))

	for _, game := range games {
		if err := m.pollGame(ctx, game); err != nil {
			result.Errors++
			metrics.SyncErrors.Inc()
			logger.Log.Error("Game poll failed",
				zap.String("gameId", game.GameID),
				zap.Error(err),
			)
			continue
		}
		result.GamesPolled++
	}

	m.recordCycle(result, started)
	return result
}

func (m *Monitor) recordCycle(result CycleResult, started time.Time) {
	metrics.PollCycles.Inc()
	metrics.GamesPolled.Add(float64(result.GamesPolled))
	metrics.CycleDuration.Observe(m.now().Sub(started).Seconds())

	m.mu.Lock()
	m.stats.CyclesRun++
	m.stats.GamesPolled += int64(result.GamesPolled)
	m.stats.SyncErrors += int64(result.Errors)
	t := started
	m.stats.LastCycleAt = &t
	m.stats.CurrentInterval = result.NextInterval
	m.mu.Unlock()
}

// pollGame refreshes one game: box-score summary first, then the play-by-play
// reconciliation, then poll bookkeeping and the automatic stop rule.
func (m *Monitor) pollGame(ctx context.Context, game *models.Game) error {
	now := m.now()

	box, err := m.feed.GetBoxScore(ctx, game.GameID)
	if err != nil {
		return fmt.Errorf("box score: %w", err)
	}
	if box != nil {
		game.ApplyBoxScore(
			feed.StatusFromCode(box.GameStatus),
			box.HomeTeam.Score,
			box.AwayTeam.Score,
			box.Period,
			box.GameClock,
			now,
		)
		game.HomeTeamID = box.HomeTeam.TeamID
		game.HomeTricode = box.HomeTeam.TeamTricode
		game.AwayTeamID = box.AwayTeam.TeamID
		game.AwayTricode = box.AwayTeam.TeamTricode
		game.ArenaName = box.Arena.ArenaName
		game.ArenaCity = box.Arena.ArenaCity
		game.Attendance = box.Attendance
	}

	result, err := m.syncer.Sync(ctx, game.GameID)
	if err != nil {
		return err
	}

	game.LastPolledAt = &now
	game.PollCount++
	game.UpdatedAt = now

	if game.FinishedLongerThan(m.cfg.StopAfterFinal, now) {
		game.IsMonitoring = false
		logger.Log.Info("Game finished, monitoring stopped automatically",
			zap.String("gameId", game.GameID),
		)
	}

	if err := m.games.Upsert(ctx, game); err != nil {
		return fmt.Errorf("update game: %w", err)
	}

	m.recordSync(result)
	m.publishAlerts(ctx, result.Alerts)
	m.writeCache(ctx, game)

	return nil
}

func (m *Monitor) recordSync(result *SyncResult) {
	metrics.ActionsChanged.WithLabelValues("created").Add(float64(result.Created))
	metrics.ActionsChanged.WithLabelValues("updated").Add(float64(result.Updated))
	metrics.ActionsChanged.WithLabelValues("deleted").Add(float64(result.Deleted))
	metrics.ActionsChanged.WithLabelValues("restored").Add(float64(result.Restored))
	metrics.SignificantEdits.Add(float64(result.SignificantEdits))

	m.mu.Lock()
	m.stats.SignificantEdits += int64(result.SignificantEdits)
	m.mu.Unlock()
}

func (m *Monitor) publishAlerts(ctx context.Context, alerts []EditAlert) {
	if m.alerts == nil {
		return
	}
	for _, alert := range alerts {
		if err := m.alerts.PublishAlert(ctx, alert); err != nil {
			// Alerting is best effort; the edit is already persisted.
			logger.Log.Warn("Failed to publish edit alert",
				zap.String("gameId", alert.GameID),
				zap.Int("actionNumber", alert.ActionNumber),
				zap.Error(err),
			)
		}
	}
}

func (m *Monitor) writeCache(ctx context.Context, game *models.Game) {
	if m.cache == nil {
		return
	}
	if err := m.cache.WriteGameSummary(ctx, game); err != nil {
		logger.Log.Warn("Failed to write live cache",
			zap.String("gameId", game.GameID),
			zap.Error(err),
		)
	}
}

// StartMonitoring begins monitoring a game. With fresh=true (the operator
// default) all stored actions are wiped and one sync rebuilds a clean
// baseline; the game is excluded from polling via the isRefreshing lock for
// the duration, and the lock is released on every exit path.
func (m *Monitor) StartMonitoring(ctx context.Context, gameID string, fresh bool) error {
	game, err := m.games.Get(ctx, gameID)
	if err != nil {
		if db.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
		}
		return fmt.Errorf("start monitoring: %w", err)
	}

	now := m.now()

	if !fresh {
		// System-initiated auto-start: sync against existing data, no wipe.
		game.IsMonitoring = true
		game.MonitoringStartedAt = &now
		game.UpdatedAt = now
		if err := m.games.Upsert(ctx, game); err != nil {
			return fmt.Errorf("start monitoring: %w", err)
		}
		if _, err := m.syncer.Sync(ctx, gameID); err != nil {
			// The next cycle retries naturally.
			logger.Log.Warn("Initial sync failed on auto-start",
				zap.String("gameId", gameID),
				zap.Error(err),
			)
		}
		logger.Log.Info("Monitoring started", zap.String("gameId", gameID), zap.Bool("fresh", false))
		return nil
	}

	game.IsRefreshing = true
	game.IsMonitoring = false
	game.RefreshStartedAt = &now
	game.UpdatedAt = now
	if err := m.games.Upsert(ctx, game); err != nil {
		return fmt.Errorf("acquire refresh lock: %w", err)
	}

	defer func() {
		// The lock must never outlive this call, error or not. Persisting
		// here also commits IsMonitoring set on the success path. The unlock
		// write must survive a cancelled request context.
		game.IsRefreshing = false
		game.RefreshStartedAt = nil
		game.UpdatedAt = m.now()
		if err := m.games.Upsert(context.WithoutCancel(ctx), game); err != nil {
			logger.Log.Error("Failed to release refresh lock",
				zap.String("gameId", gameID),
				zap.Error(err),
			)
		}
	}()

	if err := m.actions.DeleteByGame(ctx, gameID); err != nil {
		return fmt.Errorf("wipe actions for fresh start: %w", err)
	}

	if _, err := m.syncer.Sync(ctx, gameID); err != nil {
		return fmt.Errorf("baseline sync: %w", err)
	}

	started := m.now()
	game.IsMonitoring = true
	game.MonitoringStartedAt = &started

	logger.Log.Info("Monitoring started", zap.String("gameId", gameID), zap.Bool("fresh", true))
	return nil
}

// StopMonitoring turns off monitoring for a game.
func (m *Monitor) StopMonitoring(ctx context.Context, gameID string) error {
	game, err := m.games.Get(ctx, gameID)
	if err != nil {
		if db.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
		}
		return fmt.Errorf("stop monitoring: %w", err)
	}

	game.IsMonitoring = false
	game.UpdatedAt = m.now()
	if err := m.games.Upsert(ctx, game); err != nil {
		return fmt.Errorf("stop monitoring: %w", err)
	}

	logger.Log.Info("Monitoring stopped", zap.String("gameId", gameID))
	return nil
}

// SyncSchedule pulls today's scoreboard, upserts game records, and auto-starts
// monitoring (without a wipe) for any game already live. Returns the number of
// games seen.
func (m *Monitor) SyncSchedule(ctx context.Context) (int, error) {
	entries, err := m.feed.GetTodaysScoreboard(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync schedule: %w", err)
	}

	for _, entry := range entries {
		status := feed.StatusFromCode(entry.GameStatus)

		game, err := m.games.Get(ctx, entry.GameID)
		if err != nil {
			if !db.IsNotFound(err) {
				return 0, fmt.Errorf("sync schedule: %w", err)
			}
			game = models.NewGame(entry.GameID, status, entry.GameTimeUTC)
		}

		game.GameStatus = status
		game.GameTimeUTC = entry.GameTimeUTC
		game.Period = entry.Period
		game.GameClock = entry.GameClock
		game.HomeTeamID = entry.HomeTeam.TeamID
		game.HomeTricode = entry.HomeTeam.TeamTricode
		game.HomeScore = entry.HomeTeam.Score
		game.AwayTeamID = entry.AwayTeam.TeamID
		game.AwayTricode = entry.AwayTeam.TeamTricode
		game.AwayScore = entry.AwayTeam.Score
		game.UpdatedAt = m.now()

		if err := m.games.Upsert(ctx, game); err != nil {
			return 0, fmt.Errorf("sync schedule: %w", err)
		}

		if status == models.GameStatusLive && !game.IsMonitoring && !game.IsRefreshing {
			if err := m.StartMonitoring(ctx, game.GameID, false); err != nil {
				logger.Log.Error("Auto-start failed for live game",
					zap.String("gameId", game.GameID),
					zap.Error(err),
				)
			}
		}
	}

	logger.Log.Info("Schedule synchronized", zap.Int("games", len(entries)))
	return len(entries), nil
}
