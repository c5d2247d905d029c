package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/mobatips/internal/models"
)

var fixedNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func newTestValidator(cfg Config) *Validator {
	v := New(cfg)
	v.now = func() time.Time { return fixedNow }
	v.newID = func() string { return "tip-1" }
	return v
}

func draftedSnapshot(gameTime int) *models.TelemetrySnapshot {
	return &models.TelemetrySnapshot{
		MatchID:    "lck-t1-geng",
		Team1:      "T1",
		Team2:      "Gen.G",
		League:     "LCK",
		GameTime:   gameTime,
		Team1Stats: models.TeamStats{Gold: 2600},
		Team2Stats: models.TeamStats{Gold: 2500},
		Draft: &models.Draft{
			Team1Picks: []string{"Maokai", "Xin Zhao", "Ahri", "Jinx", "Lulu"},
			Team2Picks: []string{"K'Sante", "Jayce", "Azir", "Kalista", "Yuumi"},
		},
	}
}

func prediction(winner models.Side, probTeam1, strength float64) models.PredictionResult {
	return models.PredictionResult{
		MatchID:         "lck-t1-geng",
		Method:          models.MethodHybrid,
		PredictedWinner: winner,
		WinProbability:  probTeam1,
		Strength:        strength,
		Confidence:      models.ConfidenceFromStrength(strength),
		ModelAgreement:  0.9,
	}
}

func TestEvaluate_Accept(t *testing.T) {
	v := newTestValidator(DefaultConfig())
	pred := prediction(models.Team1, 0.65, 0.45)
	odds := models.MatchOdds{MatchID: "lck-t1-geng", Team1: 1.85, Team2: 2.05}

	d := v.Evaluate(pred, odds, draftedSnapshot(60))
	require.True(t, d.Accepted, d.Detail)
	require.NotNil(t, d.Tip)

	tip := d.Tip
	assert.Equal(t, "tip-1", tip.ID)
	assert.Equal(t, models.Team1, tip.RecommendedSide)
	assert.Equal(t, "T1", tip.RecommendedTeam)
	assert.InDelta(t, 1.85, tip.Odds, 1e-9)
	assert.InDelta(t, 20.25, tip.EVPct, 1e-9)
	assert.InDelta(t, 65.0, tip.ConfidencePct, 1e-9)
	assert.Equal(t, 2.5, tip.Units)
	assert.Equal(t, RiskMedium, tip.RiskLevel)
	assert.Equal(t, fixedNow, tip.CreatedAt)
	assert.Contains(t, tip.Reasoning, "T1 65.0% to win")
	assert.Contains(t, tip.Reasoning, "at 1.85")
	assert.Contains(t, tip.Reasoning, "gold lead +100")
}

func TestEvaluate_Team2Recommendation(t *testing.T) {
	v := newTestValidator(DefaultConfig())
	pred := prediction(models.Team2, 0.3, 0.4)
	odds := models.MatchOdds{Team1: 1.4, Team2: 2.2}

	d := v.Evaluate(pred, odds, draftedSnapshot(60))
	require.True(t, d.Accepted, d.Detail)
	assert.Equal(t, "Gen.G", d.Tip.RecommendedTeam)
	assert.InDelta(t, 54.0, d.Tip.EVPct, 1e-9)
}

func TestEvaluate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		pred   models.PredictionResult
		odds   models.MatchOdds
		snap   *models.TelemetrySnapshot
		reason models.RejectReason
	}{
		{
			name:   "outside timing window",
			pred:   prediction(models.Team1, 0.7, 0.5),
			odds:   models.MatchOdds{Team1: 1.8, Team2: 2},
			snap:   draftedSnapshot(600),
			reason: models.RejectTimingWindowMissed,
		},
		{
			name: "no draft data and not live",
			pred: prediction(models.Team1, 0.7, 0.5),
			odds: models.MatchOdds{Team1: 1.8, Team2: 2},
			snap: func() *models.TelemetrySnapshot {
				s := draftedSnapshot(60)
				s.Draft = nil
				return s
			}(),
			reason: models.RejectIncompleteDraft,
		},
		{
			name: "incomplete draft",
			pred: prediction(models.Team1, 0.7, 0.5),
			odds: models.MatchOdds{Team1: 1.8, Team2: 2},
			snap: func() *models.TelemetrySnapshot {
				s := draftedSnapshot(60)
				s.Draft.Team2Picks = s.Draft.Team2Picks[:4]
				return s
			}(),
			reason: models.RejectIncompleteDraft,
		},
		{
			name:   "odds too low",
			pred:   prediction(models.Team1, 0.7, 0.5),
			odds:   models.MatchOdds{Team1: 1.005, Team2: 20},
			snap:   draftedSnapshot(60),
			reason: models.RejectOddsOutOfRange,
		},
		{
			name:   "odds absurd",
			pred:   prediction(models.Team2, 0.3, 0.5),
			odds:   models.MatchOdds{Team1: 1.01, Team2: 75},
			snap:   draftedSnapshot(60),
			reason: models.RejectOddsOutOfRange,
		},
		{
			name:   "weak prediction",
			pred:   prediction(models.Team1, 0.55, 0.05),
			odds:   models.MatchOdds{Team1: 3, Team2: 1.3},
			snap:   draftedSnapshot(60),
			reason: models.RejectInsufficientConfidence,
		},
		{
			name:   "no favoured side",
			pred:   prediction(models.SideNone, 0.5, 0),
			odds:   models.MatchOdds{Team1: 2, Team2: 2},
			snap:   draftedSnapshot(60),
			reason: models.RejectInsufficientConfidence,
		},
		{
			name:   "negative EV",
			pred:   prediction(models.Team1, 0.6, 0.3),
			odds:   models.MatchOdds{Team1: 1.5, Team2: 2.6},
			snap:   draftedSnapshot(60),
			reason: models.RejectInsufficientEV,
		},
	}

	v := newTestValidator(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := v.Evaluate(tt.pred, tt.odds, tt.snap)
			assert.False(t, d.Accepted)
			assert.Nil(t, d.Tip)
			assert.Equal(t, tt.reason, d.Reason)
			assert.NotEmpty(t, d.Detail)
		})
	}
}

func TestEvaluate_EVIndependentOfConfidence(t *testing.T) {
	v := newTestValidator(DefaultConfig())
	pred := prediction(models.Team1, 0.95, 1.0)
	pred.Confidence = models.ConfidenceVeryHigh

	d := v.Evaluate(pred, models.MatchOdds{Team1: 1.01, Team2: 15}, draftedSnapshot(60))
	assert.False(t, d.Accepted)
	assert.Equal(t, models.RejectInsufficientEV, d.Reason)
	assert.InDelta(t, -0.0405, ExpectedValue(0.95, 1.01), 1e-9)
}

func TestEvaluate_WindowFromDraftCompletion(t *testing.T) {
	v := newTestValidator(DefaultConfig())
	pred := prediction(models.Team1, 0.7, 0.5)
	odds := models.MatchOdds{Team1: 1.8, Team2: 2}

	snap := draftedSnapshot(900)
	snap.FetchedAt = fixedNow
	snap.Draft.CompletedAt = fixedNow.Add(-90 * time.Second)
	assert.True(t, v.Evaluate(pred, odds, snap).Accepted)

	snap.Draft.CompletedAt = fixedNow.Add(-3 * time.Minute)
	assert.Equal(t, models.RejectTimingWindowMissed, v.Evaluate(pred, odds, snap).Reason)

	cfg := DefaultConfig()
	cfg.TipWindow = 0
	assert.True(t, newTestValidator(cfg).Evaluate(pred, odds, snap).Accepted)
}

func TestThreshold_CompositionBonus(t *testing.T) {
	v := newTestValidator(DefaultConfig())
	snap := draftedSnapshot(60)

	plain := prediction(models.Team1, 0.6, 0.13)
	assert.InDelta(t, 0.15, v.Threshold(plain, snap), 1e-9)

	favoured := plain
	favoured.DraftScore = 0.8
	assert.InDelta(t, 0.11, v.Threshold(favoured, snap), 1e-9)

	// a draft that favours the other side grants no bonus
	against := plain
	against.DraftScore = -0.8
	assert.InDelta(t, 0.15, v.Threshold(against, snap), 1e-9)

	partial := draftedSnapshot(60)
	partial.Draft.Team1Picks = partial.Draft.Team1Picks[:2]
	assert.InDelta(t, 0.15, v.Threshold(favoured, partial), 1e-9)

	cfg := DefaultConfig()
	cfg.CompositionBonus = 0.5
	assert.InDelta(t, cfg.StrengthFloor, newTestValidator(cfg).Threshold(favoured, snap), 1e-9)

	// with the bonus, a strength of 0.13 passes where it otherwise would not
	odds := models.MatchOdds{Team1: 2.0, Team2: 1.8}
	assert.Equal(t, models.RejectInsufficientConfidence, v.Evaluate(plain, odds, snap).Reason)
	assert.True(t, v.Evaluate(favoured, odds, snap).Accepted)
}

func TestUnits(t *testing.T) {
	tests := []struct {
		ev, strength, max float64
		want              float64
	}{
		{2, 0.1, 5, 0.5},
		{7, 0.1, 5, 1},
		{12, 0.45, 5, 2},
		{20, 0.3, 5, 2},
		{30, 0.7, 5, 4},
		{30, 0.7, 3, 3},
		{30, 0.7, 0, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Units(tt.ev, tt.strength, tt.max), "ev=%v strength=%v", tt.ev, tt.strength)
	}

	prev := 0.0
	for ev := 0.0; ev <= 40; ev += 2.5 {
		u := Units(ev, 0.5, 10)
		assert.GreaterOrEqual(t, u, prev)
		prev = u
	}
}

func TestRiskLevel(t *testing.T) {
	assert.Equal(t, RiskHigh, RiskLevel(0.2))
	assert.Equal(t, RiskMedium, RiskLevel(0.4))
	assert.Equal(t, RiskLow, RiskLevel(0.6))
}
