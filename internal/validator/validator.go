// Package validator decides whether a prediction is worth publishing as a tip.
package validator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rewired-gh/mobatips/internal/models"
)

// Config holds the acceptance thresholds.
type Config struct {
	// MinStrength is the prediction strength required without any draft bonus.
	MinStrength float64
	// CompositionBonus is the most a favourable complete draft can lower MinStrength by.
	CompositionBonus float64
	// StrengthFloor is the absolute minimum strength regardless of bonus.
	StrengthFloor float64
	// MinEVPercent is the expected value, in percent, a tip must exceed.
	MinEVPercent float64
	MinOdds      float64
	MaxOdds      float64
	// TipWindow bounds the time since draft completion (or game start). Zero disables the check.
	TipWindow            time.Duration
	RequireCompleteDraft bool
	MaxUnits             float64
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MinStrength:          0.15,
		CompositionBonus:     0.05,
		StrengthFloor:        0.08,
		MinEVPercent:         5,
		MinOdds:              1.01,
		MaxOdds:              50,
		TipWindow:            2 * time.Minute,
		RequireCompleteDraft: false,
		MaxUnits:             3,
	}
}

// Validator is stateless and safe for concurrent use.
type Validator struct {
	cfg   Config
	now   func() time.Time
	newID func() string
}

// New creates a validator.
func New(cfg Config) *Validator {
	return &Validator{cfg: cfg, now: time.Now, newID: uuid.NewString}
}

// Config returns the validator's thresholds.
func (v *Validator) Config() Config {
	return v.cfg
}

// Evaluate checks timing, draft, odds, confidence and expected value in that order and
// returns the first failing reason, or an accepted decision carrying the new tip.
// The returned tip has no MapID; the caller assigns it.
func (v *Validator) Evaluate(pred models.PredictionResult, odds models.MatchOdds, snap *models.TelemetrySnapshot) models.TipDecision {
	if snap == nil {
		return reject(models.RejectTimingWindowMissed, "no snapshot")
	}

	if ok, elapsed := v.withinWindow(snap); !ok {
		return reject(models.RejectTimingWindowMissed,
			fmt.Sprintf("%s elapsed, window is %s", elapsed.Round(time.Second), v.cfg.TipWindow))
	}

	if !snap.DraftReady(v.cfg.RequireCompleteDraft) {
		var p1, p2 int
		if snap.Draft != nil {
			p1, p2 = len(snap.Draft.Team1Picks), len(snap.Draft.Team2Picks)
		}
		return reject(models.RejectIncompleteDraft, fmt.Sprintf("picks %d/%d", p1, p2))
	}

	side := pred.PredictedWinner
	if side == models.SideNone {
		return reject(models.RejectInsufficientConfidence, "no favoured side")
	}

	price := odds.For(side)
	if math.IsNaN(price) || price < v.cfg.MinOdds || price > v.cfg.MaxOdds {
		return reject(models.RejectOddsOutOfRange,
			fmt.Sprintf("odds %.2f outside [%.2f, %.2f]", price, v.cfg.MinOdds, v.cfg.MaxOdds))
	}

	threshold := v.Threshold(pred, snap)
	if pred.Strength < threshold {
		return reject(models.RejectInsufficientConfidence,
			fmt.Sprintf("strength %.3f below %.3f", pred.Strength, threshold))
	}

	prob := pred.ProbabilityFor(side)
	evPct := ExpectedValue(prob, price) * 100
	if evPct <= v.cfg.MinEVPercent {
		return reject(models.RejectInsufficientEV,
			fmt.Sprintf("EV %.2f%% not above %.2f%%", evPct, v.cfg.MinEVPercent))
	}

	tip := &models.ProfessionalTip{
		ID:              v.newID(),
		MatchID:         snap.MatchID,
		Team1:           snap.Team1,
		Team2:           snap.Team2,
		League:          snap.League,
		Tournament:      snap.Tournament,
		RecommendedSide: side,
		RecommendedTeam: snap.TeamName(side),
		Odds:            price,
		Units:           Units(evPct, pred.Strength, v.cfg.MaxUnits),
		RiskLevel:       RiskLevel(pred.Strength),
		ConfidencePct:   round2(prob * 100),
		ConfidenceLevel: pred.Confidence,
		EVPct:           round2(evPct),
		GameTime:        snap.GameTime,
		Method:          pred.Method,
		CreatedAt:       v.now(),
	}
	tip.Reasoning = reasoning(pred, snap, side, evPct, price)

	return models.TipDecision{Accepted: true, Tip: tip}
}

// Threshold is the effective minimum strength. A complete draft favouring the predicted
// winner lowers it by up to CompositionBonus, never below StrengthFloor.
func (v *Validator) Threshold(pred models.PredictionResult, snap *models.TelemetrySnapshot) float64 {
	threshold := v.cfg.MinStrength
	if snap != nil && snap.Draft.Complete() {
		draft := pred.DraftScore
		if pred.PredictedWinner == models.Team2 {
			draft = -draft
		}
		if draft > 0 {
			threshold -= v.cfg.CompositionBonus * math.Min(draft, 1)
		}
	}
	return math.Max(threshold, v.cfg.StrengthFloor)
}

func (v *Validator) withinWindow(snap *models.TelemetrySnapshot) (bool, time.Duration) {
	if v.cfg.TipWindow <= 0 {
		return true, 0
	}
	var elapsed time.Duration
	if snap.Draft != nil && !snap.Draft.CompletedAt.IsZero() {
		at := snap.FetchedAt
		if at.IsZero() {
			at = v.now()
		}
		elapsed = at.Sub(snap.Draft.CompletedAt)
	} else {
		elapsed = snap.Elapsed()
	}
	return elapsed >= 0 && elapsed <= v.cfg.TipWindow, elapsed
}

// ExpectedValue is probability·odds − 1.
func ExpectedValue(prob, odds float64) float64 {
	return prob*odds - 1
}

func reject(reason models.RejectReason, detail string) models.TipDecision {
	return models.TipDecision{Reason: reason, Detail: detail}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func reasoning(pred models.PredictionResult, snap *models.TelemetrySnapshot, side models.Side, evPct, odds float64) string {
	team := snap.TeamName(side)
	parts := []string{
		fmt.Sprintf("%s %.1f%% to win (%s, %s confidence)",
			team, pred.ProbabilityFor(side)*100, pred.Method, strings.ReplaceAll(string(pred.Confidence), "_", " ")),
	}

	own, enemy := snap.Stats(side), snap.Stats(side.Opponent())
	if diff := own.Gold - enemy.Gold; diff > 0 {
		parts = append(parts, fmt.Sprintf("gold lead %+d", diff))
	}
	if diff := own.Dragons - enemy.Dragons; diff > 0 {
		parts = append(parts, fmt.Sprintf("%d more dragons", diff))
	}
	if own.Barons > enemy.Barons {
		parts = append(parts, "baron control")
	}

	draft := pred.DraftScore
	if side == models.Team2 {
		draft = -draft
	}
	if draft > 0.2 {
		parts = append(parts, "stronger draft")
	}
	if pred.Momentum == side {
		parts = append(parts, "has momentum")
	}
	if pred.Method == models.MethodHybrid {
		parts = append(parts, fmt.Sprintf("model agreement %.0f%%", pred.ModelAgreement*100))
	}
	parts = append(parts, fmt.Sprintf("EV %+.1f%% at %.2f", evPct, odds))
	return strings.Join(parts, "; ")
}
