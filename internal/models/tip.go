package models

import (
	"errors"
	"fmt"
	"time"
)

// MatchOdds holds decimal odds offered for each side of a match.
type MatchOdds struct {
	MatchID   string
	Team1     float64
	Team2     float64
	Bookmaker string
	UpdatedAt time.Time
}

// For returns the odds for the given side.
func (o MatchOdds) For(side Side) float64 {
	if side == Team2 {
		return o.Team2
	}
	return o.Team1
}

// ProfessionalTip is a betting recommendation. Immutable once created.
type ProfessionalTip struct {
	ID              string           `json:"id"`
	MatchID         string           `json:"match_id"`
	MapID           string           `json:"map_id"`
	Team1           string           `json:"team1"`
	Team2           string           `json:"team2"`
	League          string           `json:"league"`
	Tournament      string           `json:"tournament,omitempty"`
	RecommendedSide Side             `json:"recommended_side"`
	RecommendedTeam string           `json:"recommended_team"`
	Odds            float64          `json:"odds"`
	Units           float64          `json:"units"`
	RiskLevel       string           `json:"risk_level"`
	ConfidencePct   float64          `json:"confidence_pct"`
	ConfidenceLevel ConfidenceLevel  `json:"confidence_level"`
	EVPct           float64          `json:"ev_pct"`
	Reasoning       string           `json:"reasoning"`
	GameTime        int              `json:"game_time"`
	Method          PredictionMethod `json:"method"`
	CreatedAt       time.Time        `json:"created_at"`
}

// RejectReason is the closed set of reasons a tip may be declined.
type RejectReason string

const (
	RejectInsufficientConfidence RejectReason = "insufficient_confidence"
	RejectInsufficientEV         RejectReason = "insufficient_ev"
	RejectOddsOutOfRange         RejectReason = "odds_out_of_range"
	RejectTimingWindowMissed     RejectReason = "timing_window_missed"
	RejectIncompleteDraft        RejectReason = "incomplete_draft"
)

// Message returns a human-readable description.
func (r RejectReason) Message() string {
	switch r {
	case RejectInsufficientConfidence:
		return "insufficient confidence"
	case RejectInsufficientEV:
		return "insufficient expected value"
	case RejectOddsOutOfRange:
		return "odds out of range"
	case RejectTimingWindowMissed:
		return "timing window missed"
	case RejectIncompleteDraft:
		return "incomplete draft"
	default:
		return string(r)
	}
}

// TipDecision is the validator's verdict.
type TipDecision struct {
	Accepted bool
	Tip      *ProfessionalTip
	Reason   RejectReason
	Detail   string
}

// TipStatus is a GeneratedTip's lifecycle state.
type TipStatus string

const (
	TipGenerated TipStatus = "GENERATED"
	TipSent      TipStatus = "SENT"
	TipExpired   TipStatus = "EXPIRED"
	TipRejected  TipStatus = "REJECTED"
)

var allowedTransitions = map[TipStatus]TipStatus{
	TipGenerated: TipSent,
	TipSent:      TipExpired,
}

// ErrInvalidTransition is returned for any transition outside the lifecycle.
var ErrInvalidTransition = errors.New("invalid tip status transition")

// GeneratedTip wraps a tip with its lifecycle state.
type GeneratedTip struct {
	Tip         ProfessionalTip
	Status      TipStatus
	Snapshot    TelemetrySnapshot
	GeneratedAt time.Time
	SentAt      time.Time
	ExpiredAt   time.Time
}

// NewGeneratedTip returns a tip in state GENERATED.
func NewGeneratedTip(tip ProfessionalTip, snap TelemetrySnapshot, at time.Time) *GeneratedTip {
	return &GeneratedTip{Tip: tip, Status: TipGenerated, Snapshot: snap, GeneratedAt: at}
}

// Transition moves the tip to the next status. GENERATED may go to SENT or REJECTED,
// SENT may go to EXPIRED; everything else is refused.
func (g *GeneratedTip) Transition(to TipStatus, at time.Time) error {
	ok := allowedTransitions[g.Status] == to || (g.Status == TipGenerated && to == TipRejected)
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.Status, to)
	}
	g.Status = to
	switch to {
	case TipSent:
		g.SentAt = at
	case TipExpired:
		g.ExpiredAt = at
	}
	return nil
}

// MonitoringStats are monotonically increasing counters since process start.
type MonitoringStats struct {
	StartedAt      time.Time
	Cycles         int
	MatchesScanned int
	TipsGenerated  int
	TipsSent       int
	TipsExpired    int
	TipsRejected   int
}
