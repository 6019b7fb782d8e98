// Package feed provides the read-only client for the upstream live game feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/courtside/pbp-edit-monitor-go/internal/db/models"
)

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client defines the operations the monitor needs from the upstream feed.
type Client interface {
	// GetPlayByPlay fetches the current action list for a game. Returns
	// (nil, nil) when the feed has not published the game yet.
	GetPlayByPlay(ctx context.Context, gameID string) ([]Action, error)

	// GetBoxScore fetches the live box-score summary for a game. Returns
	// (nil, nil) when the feed has not published the game yet.
	GetBoxScore(ctx context.Context, gameID string) (*BoxScore, error)

	// GetTodaysScoreboard fetches today's schedule with live statuses.
	GetTodaysScoreboard(ctx context.Context) ([]ScoreboardGame, error)
}

// Action is one play-by-play event as published upstream.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Action struct {
	ActionNumber int       `json:"actionNumber"`
	Clock        string    `json:"clock"`
	TimeActual   time.Time `json:"timeActual"`
	Period       int       `json:"period"`
	TeamTricode  string    `json:"teamTricode"`
	PersonID     int       `json:"personId"`
	PlayerName   string    `json:"playerName"`
	ActionType   string    `json:"actionType"`
	SubType      string    `json:"subType"`
	Description  string    `json:"description"`
	ShotResult   string    `json:"shotResult"`
	ScoreHome    string    `json:"scoreHome"`
	ScoreAway    string    `json:"scoreAway"`
	Edited       time.Time `json:"edited"`
}

// Snapshot converts the feed action into the stored tracked-field shape.
func (a Action) Snapshot() models.ActionSnapshot {
	return models.ActionSnapshot{
		Description: a.Description,
		Clock:       a.Clock,
		Period:      a.Period,
		TeamTricode: a.TeamTricode,
		ActionType:  a.ActionType,
		SubType:     a.SubType,
		PersonID:    a.PersonID,
		PlayerName:  a.PlayerName,
		ShotResult:  a.ShotResult,
		ScoreHome:   a.ScoreHome,
		ScoreAway:   a.ScoreAway,
		Edited:      a.Edited,
		TimeActual:  a.TimeActual,
	}
}

// Team is the team summary embedded in box scores and the scoreboard.
type Team struct {
	TeamID      int    `json:"teamId"`
	TeamTricode string `json:"teamTricode"`
	Score       int    `json:"score"`
}

// BoxScore is the live game summary as published upstream.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type BoxScore struct {
	GameID     string `json:"gameId"`
	GameStatus int    `json:"gameStatus"`
	Period     int    `json:"period"`
	GameClock  string `json:"gameClock"`
	Attendance int    `json:"attendance"`
	Arena      struct {
		ArenaName string `json:"arenaName"`
		ArenaCity string `json:"arenaCity"`
	} `json:"arena"`
	HomeTeam  Team `json:"homeTeam"`
	AwayTeam  Team `json:"awayTeam"`
	Officials []struct {
		PersonID int    `json:"personId"`
		Name     string `json:"name"`
	} `json:"officials"`
}

// ScoreboardGame is one schedule entry from the daily scoreboard.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ScoreboardGame struct {
	GameID      string    `json:"gameId"`
	GameStatus  int       `json:"gameStatus"`
	GameTimeUTC time.Time `json:"gameTimeUTC"`
	Period      int       `json:"period"`
	GameClock   string    `json:"gameClock"`
	HomeTeam    Team      `json:"homeTeam"`
	AwayTeam    Team      `json:"awayTeam"`
}

// Upstream status codes: 1 scheduled, 2 live, 3 final.
const (
	statusScheduled = 1
	statusLive      = 2
	statusFinal     = 3
)

// StatusFromCode maps the upstream numeric game status to the stored one.
func StatusFromCode(code int) models.GameStatus {
	switch code {
	case statusLive:
		return models.GameStatusLive
	case statusFinal:
		return models.GameStatusFinal
	default:
		return models.GameStatusScheduled
	}
}

// HTTPFeedClient fetches live game data over HTTP+JSON.
type HTTPFeedClient struct {
	client    HTTPClient
	baseURL   string
	userAgent string
}

// NewClient creates a feed client for the given base URL. A nil httpClient
// falls back to a default client with the given timeout.
func NewClient(httpClient HTTPClient, baseURL, userAgent string, timeout time.Duration) *HTTPFeedClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPFeedClient{
		client:    httpClient,
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

func (c *HTTPFeedClient) GetPlayByPlay(ctx context.Context, gameID string) ([]Action, error) {
	url := fmt.Sprintf("%s/playbyplay/playbyplay_%s.json", c.baseURL, gameID)

	var payload struct {
		Game struct {
			GameID  string   `json:"gameId"`
			Actions []Action `json:"actions"`
		} `json:"game"`
	}

	found, err := c.fetch(ctx, url, &payload)
	if err != nil {
		return nil, fmt.Errorf("fetch play-by-play: %w", err)
	}
	if !found {
		return nil, nil
	}

	return payload.Game.Actions, nil
}

func (c *HTTPFeedClient) GetBoxScore(ctx context.Context, gameID string) (*BoxScore, error) {
	url := fmt.Sprintf("%s/boxscore/boxscore_%s.json", c.baseURL, gameID)

	var payload struct {
		Game BoxScore `json:"game"`
	}

	found, err := c.fetch(ctx, url, &payload)
	if err != nil {
		return nil, fmt.Errorf("fetch box score: %w", err)
	}
	if !found {
		return nil, nil
	}

	return &payload.Game, nil
}

func (c *HTTPFeedClient) GetTodaysScoreboard(ctx context.Context) ([]ScoreboardGame, error) {
	url := fmt.Sprintf("%s/scoreboard/todaysScoreboard_00.json", c.baseURL)

	var payload struct {
		Scoreboard struct {
			GameDate string           `json:"gameDate"`
			Games    []ScoreboardGame `json:"games"`
		} `json:"scoreboard"`
	}

	found, err := c.fetch(ctx, url, &payload)
	if err != nil {
		return nil, fmt.Errorf("fetch scoreboard: %w", err)
	}
	if !found {
		return nil, nil
	}

	return payload.Scoreboard.Games, nil
}

// fetch makes a GET request and decodes the JSON body into out. It reports
// found=false for 403/404 responses: the CDN answers those for games that have
// not been published yet, which is a benign empty result, not a failure.
func (c *HTTPFeedClient) fetch(ctx context.Context, url string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("make request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}

	return true, nil
}

var _ Client = (*HTTPFeedClient)(nil)
