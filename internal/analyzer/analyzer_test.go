package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/mobatips/internal/models"
)

func midGameSnapshot() *models.TelemetrySnapshot {
	return &models.TelemetrySnapshot{
		MatchID:  "lck-t1-hle-2",
		Team1:    "T1",
		Team2:    "Hanwha Life",
		League:   "LCK",
		GameTime: 1200,
		Team1Stats: models.TeamStats{
			Gold: 30000, Kills: 8, Deaths: 4, CS: 420, Towers: 3, Dragons: 3, Barons: 1,
			WardsPlaced: 40, WardsDestroyed: 10,
		},
		Team2Stats: models.TeamStats{
			Gold: 26000, Kills: 4, Deaths: 8, CS: 400, Towers: 3, Dragons: 1,
			WardsPlaced: 35, WardsDestroyed: 6,
		},
	}
}

func TestAnalyze_MidGameLead(t *testing.T) {
	a := New(nil)
	ga := a.Analyze(midGameSnapshot())

	assert.Equal(t, models.PhaseMid, ga.Phase)
	assert.Greater(t, ga.Team1Advantage.Overall, 0.3)
	assert.Less(t, ga.Team2Advantage.Overall, -0.3)
	assert.Greater(t, ga.WinProbability, 0.6)
	assert.Equal(t, models.Team1, ga.PredictedWinner)
	assert.False(t, ga.Degraded)
}

func TestAnalyze_NeutralGame(t *testing.T) {
	a := New(nil)
	ga := a.Analyze(&models.TelemetrySnapshot{MatchID: "even", GameTime: 600})

	assert.InDelta(t, 0.5, ga.WinProbability, 1e-9)
	assert.Equal(t, models.SideNone, ga.MomentumHolder)
	assert.Equal(t, 0, ga.CrucialEvents)
	assert.Equal(t, models.SideNone, ga.PredictedWinner)
	assert.InDelta(t, 0.5, ga.Team1Advantage.ObjectiveControl, 1e-9)
	assert.InDelta(t, 0.0, ga.Team1Advantage.Vision, 1e-9)
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := New(nil)
	snap := midGameSnapshot()
	snap.Events = []models.GameEvent{
		{Type: models.EventDragon, Team: models.Team1, Timestamp: 700},
		{Type: models.EventBaron, Team: models.Team1, Timestamp: 1150},
	}
	snap.Draft = &models.Draft{
		Team1Picks: []string{"K'Sante", "Vi", "Orianna", "Jinx", "Braum"},
		Team2Picks: []string{"Gnar", "Lee Sin", "Azir", "Kalista", "Rell"},
	}

	first := a.Analyze(snap)
	second := a.Analyze(snap)
	assert.Equal(t, first, second)
}

func TestAnalyze_ClampInvariant(t *testing.T) {
	a := New(nil)
	stomp := &models.TelemetrySnapshot{
		MatchID:    "stomp",
		GameTime:   2400,
		Team1Stats: models.TeamStats{Gold: 80000, Kills: 40, Towers: 11, Dragons: 5, Barons: 3, CS: 1200, WardsPlaced: 150},
		Team2Stats: models.TeamStats{Gold: 50000},
		Events: []models.GameEvent{
			{Type: models.EventAce, Team: models.Team1, Timestamp: 2300},
			{Type: models.EventBaron, Team: models.Team1, Timestamp: 2350},
		},
	}

	ga := a.Analyze(stomp)
	assert.LessOrEqual(t, ga.Team1Advantage.Overall, 1.0)
	assert.GreaterOrEqual(t, ga.Team2Advantage.Overall, -1.0)
	assert.InDelta(t, 0.95, ga.WinProbability, 1e-9)
	assert.LessOrEqual(t, ga.Confidence, 0.95)

	reversed := *stomp
	reversed.Team1Stats, reversed.Team2Stats = stomp.Team2Stats, stomp.Team1Stats
	reversed.Events = nil
	ga = a.Analyze(&reversed)
	assert.InDelta(t, 0.05, ga.WinProbability, 1e-9)
	assert.Equal(t, models.Team2, ga.PredictedWinner)
}

func TestAnalyze_InvalidSnapshotDegrades(t *testing.T) {
	a := New(nil)
	snap := midGameSnapshot()
	snap.Team2Stats.Gold = -1

	ga := a.Analyze(snap)
	require.True(t, ga.Degraded)
	assert.Equal(t, models.PhaseEarly, ga.Phase)
	assert.Equal(t, models.TeamAdvantage{}, ga.Team1Advantage)
	assert.Equal(t, 0, ga.CrucialEvents)
	assert.Equal(t, "lck-t1-hle-2", ga.MatchID)

	nilGA := a.Analyze(nil)
	assert.True(t, nilGA.Degraded)
}

func TestPhaseAt(t *testing.T) {
	assert.Equal(t, models.PhaseEarly, PhaseAt(0))
	assert.Equal(t, models.PhaseEarly, PhaseAt(899))
	assert.Equal(t, models.PhaseMid, PhaseAt(900))
	assert.Equal(t, models.PhaseMid, PhaseAt(1799))
	assert.Equal(t, models.PhaseLate, PhaseAt(1800))
}

func TestCrucialEvents(t *testing.T) {
	events := []models.GameEvent{
		{Type: models.EventTeamfightWin, Team: models.Team1, Timestamp: 500}, // early: ignored
		{Type: models.EventDragonSoul, Team: models.Team1, Timestamp: 1000},
		{Type: models.EventTeamfightWin, Team: models.Team2, Timestamp: 1100},
		{Type: models.EventInhibitor, Team: models.Team2, Timestamp: 1500},
		{Type: models.EventKill, Team: models.Team2, Timestamp: 1510},
		{Type: models.EventAce, Team: models.Team1, Timestamp: 1600},
	}
	assert.Equal(t, 2+1+1+2, CrucialEvents(events))
}

func TestMomentum(t *testing.T) {
	tests := []struct {
		name     string
		events   []models.GameEvent
		gameTime int
		want     models.Side
	}{
		{
			name:     "empty window",
			events:   []models.GameEvent{{Type: models.EventBaron, Team: models.Team1, Timestamp: 100}},
			gameTime: 1000,
			want:     models.SideNone,
		},
		{
			name: "clear leader",
			events: []models.GameEvent{
				{Type: models.EventBaron, Team: models.Team1, Timestamp: 900},
				{Type: models.EventKill, Team: models.Team2, Timestamp: 950},
			},
			gameTime: 1000,
			want:     models.Team1,
		},
		{
			name: "below factor",
			events: []models.GameEvent{
				{Type: models.EventDragon, Team: models.Team2, Timestamp: 800},
				{Type: models.EventTower, Team: models.Team1, Timestamp: 850},
			},
			gameTime: 1000,
			want:     models.SideNone, // 2.0 vs 1.5 is under 1.5x
		},
		{
			name: "exact factor",
			events: []models.GameEvent{
				{Type: models.EventTower, Team: models.Team2, Timestamp: 800},
				{Type: models.EventKill, Team: models.Team1, Timestamp: 850},
			},
			gameTime: 1000,
			want:     models.Team2,
		},
		{
			name: "events outside window ignored",
			events: []models.GameEvent{
				{Type: models.EventBaron, Team: models.Team2, Timestamp: 600},
				{Type: models.EventKill, Team: models.Team1, Timestamp: 950},
			},
			gameTime: 1000,
			want:     models.Team1,
		},
		{
			name: "unknown event uses default weight",
			events: []models.GameEvent{
				{Type: "ward_kill", Team: models.Team1, Timestamp: 990},
			},
			gameTime: 1000,
			want:     models.Team1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Momentum(tt.events, tt.gameTime))
		})
	}
}

func TestTimingScore(t *testing.T) {
	assert.InDelta(t, 0.6, TimingScore(models.PhaseEarly, 0), 1e-9)
	assert.InDelta(t, 0.9, TimingScore(models.PhaseMid, 10), 1e-9)
	assert.InDelta(t, 1.0, TimingScore(models.PhaseMid, 100), 1e-9)
	assert.InDelta(t, 1.0, TimingScore(models.PhaseLate, 5), 1e-9)
}

func TestConfidenceBounds(t *testing.T) {
	assert.InDelta(t, 0.1, confidence(0, 0, 0.5), 1e-9)
	assert.InDelta(t, 0.4+0.4+0.135, confidence(2400, 10, 0.725), 1e-9)
	assert.InDelta(t, 0.95, confidence(2400, 10, 0.95), 1e-9)
}
