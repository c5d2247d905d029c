// Package models defines the core domain entities: match telemetry, analyses, predictions and tips.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Side identifies one of the two teams in a match.
type Side int

const (
	SideNone Side = iota
	Team1
	Team2
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	switch s {
	case Team1:
		return Team2
	case Team2:
		return Team1
	default:
		return SideNone
	}
}

func (s Side) String() string {
	switch s {
	case Team1:
		return "team1"
	case Team2:
		return "team2"
	default:
		return "none"
	}
}

// EventType names an in-game event reported by the live feed.
type EventType string

const (
	EventKill         EventType = "kill"
	EventTower        EventType = "tower"
	EventInhibitor    EventType = "inhibitor"
	EventNexusTower   EventType = "nexus_tower"
	EventDragon       EventType = "dragon"
	EventDragonSoul   EventType = "dragon_soul"
	EventElderDragon  EventType = "elder_dragon"
	EventBaron        EventType = "baron"
	EventHerald       EventType = "herald"
	EventAce          EventType = "ace"
	EventTeamfightWin EventType = "teamfight_win"
)

// GameEvent is one timestamped event; Timestamp is seconds of game time.
type GameEvent struct {
	Type      EventType `json:"type"`
	Team      Side      `json:"team"`
	Timestamp int       `json:"timestamp"`
}

// TeamStats holds cumulative per-team counters.
type TeamStats struct {
	Gold           int `json:"gold"`
	Kills          int `json:"kills"`
	Deaths         int `json:"deaths"`
	Assists        int `json:"assists"`
	CS             int `json:"cs"`
	Towers         int `json:"towers"`
	Dragons        int `json:"dragons"`
	Barons         int `json:"barons"`
	Heralds        int `json:"heralds"`
	WardsPlaced    int `json:"wards_placed"`
	WardsDestroyed int `json:"wards_destroyed"`
}

// IsZero reports whether no counter has been recorded.
func (s TeamStats) IsZero() bool {
	return s == TeamStats{}
}

func (s TeamStats) validate() error {
	fields := []int{s.Gold, s.Kills, s.Deaths, s.Assists, s.CS, s.Towers, s.Dragons, s.Barons,
		s.Heralds, s.WardsPlaced, s.WardsDestroyed}
	for _, v := range fields {
		if v < 0 {
			return errors.New("team stats must not be negative")
		}
	}
	return nil
}

// PicksPerSide is the number of champion picks each team makes in a complete draft.
const PicksPerSide = 5

// Draft holds pick/ban data. Side values are "blue" or "red".
type Draft struct {
	Team1Picks  []string  `json:"team1_picks"`
	Team2Picks  []string  `json:"team2_picks"`
	Team1Bans   []string  `json:"team1_bans,omitempty"`
	Team2Bans   []string  `json:"team2_bans,omitempty"`
	Team1Side   string    `json:"team1_side,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Complete reports whether both sides have locked in all picks.
func (d *Draft) Complete() bool {
	return d != nil && len(d.Team1Picks) >= PicksPerSide && len(d.Team2Picks) >= PicksPerSide
}

// Picks returns the picks for the given side.
func (d *Draft) Picks(side Side) []string {
	if d == nil {
		return nil
	}
	if side == Team2 {
		return d.Team2Picks
	}
	return d.Team1Picks
}

// SeriesGame is one entry of a series' game list.
type SeriesGame struct {
	Number int    `json:"number"`
	Status string `json:"status"`
}

// Series describes the best-of series a match belongs to.
type Series struct {
	BestOf     int          `json:"best_of"`
	GameNumber int          `json:"game_number,omitempty"`
	Team1Wins  int          `json:"team1_wins"`
	Team2Wins  int          `json:"team2_wins"`
	Games      []SeriesGame `json:"games,omitempty"`
}

// Match statuses reported by the live feed.
const (
	StatusLive       = "live"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// TelemetrySnapshot describes one match at one point in time.
// It is treated as immutable once fetched.
type TelemetrySnapshot struct {
	MatchID    string      `json:"match_id"`
	Team1      string      `json:"team1"`
	Team2      string      `json:"team2"`
	League     string      `json:"league"`
	Tournament string      `json:"tournament,omitempty"`
	Status     string      `json:"status,omitempty"`
	GameTime   int         `json:"game_time"`
	Team1Stats TeamStats   `json:"team1_stats"`
	Team2Stats TeamStats   `json:"team2_stats"`
	Events     []GameEvent `json:"events,omitempty"`
	Draft      *Draft      `json:"draft,omitempty"`
	Series     *Series     `json:"series,omitempty"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// Elapsed returns the game time as a duration.
func (s *TelemetrySnapshot) Elapsed() time.Duration {
	return time.Duration(s.GameTime) * time.Second
}

// Stats returns the stats for the given side.
func (s *TelemetrySnapshot) Stats(side Side) TeamStats {
	if side == Team2 {
		return s.Team2Stats
	}
	return s.Team1Stats
}

// TeamName returns the name for the given side.
func (s *TelemetrySnapshot) TeamName(side Side) string {
	switch side {
	case Team1:
		return s.Team1
	case Team2:
		return s.Team2
	default:
		return ""
	}
}

// IsLive reports whether the feed marks the match as currently being played.
func (s *TelemetrySnapshot) IsLive() bool {
	return s.Status == StatusLive || s.Status == StatusInProgress
}

// DraftReady accepts five picks per side. Without any draft data, a live status is taken
// as evidence the draft is over unless requireComplete is set. A partial draft never passes.
func (s *TelemetrySnapshot) DraftReady(requireComplete bool) bool {
	if s.Draft.Complete() {
		return true
	}
	if s.Draft != nil && (len(s.Draft.Team1Picks) > 0 || len(s.Draft.Team2Picks) > 0) {
		return false
	}
	return !requireComplete && s.IsLive()
}

// Validate checks snapshot invariants: non-negative stats and ascending event timestamps.
func (s *TelemetrySnapshot) Validate() error {
	if s == nil {
		return errors.New("snapshot is nil")
	}
	if s.MatchID == "" {
		return errors.New("match ID must not be empty")
	}
	if s.GameTime < 0 {
		return errors.New("game time must not be negative")
	}
	if err := s.Team1Stats.validate(); err != nil {
		return fmt.Errorf("team1: %w", err)
	}
	if err := s.Team2Stats.validate(); err != nil {
		return fmt.Errorf("team2: %w", err)
	}
	for i := 1; i < len(s.Events); i++ {
		if s.Events[i].Timestamp < s.Events[i-1].Timestamp {
			return errors.New("events must be sorted by timestamp")
		}
	}
	return nil
}
