package models

import (
	"fmt"
	"strings"
	"time"
)

// PredictionMethod selects which sub-model drives a prediction.
type PredictionMethod string

const (
	MethodAlgorithmic PredictionMethod = "algorithmic"
	MethodModel       PredictionMethod = "model"
	MethodHybrid      PredictionMethod = "hybrid"
)

// ParsePredictionMethod parses a method name; an empty string means hybrid.
func ParsePredictionMethod(s string) (PredictionMethod, error) {
	switch PredictionMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodHybrid:
		return MethodHybrid, nil
	case MethodAlgorithmic:
		return MethodAlgorithmic, nil
	case MethodModel:
		return MethodModel, nil
	default:
		return "", fmt.Errorf("unknown prediction method %q", s)
	}
}

// ConfidenceLevel buckets a continuous prediction strength.
type ConfidenceLevel string

const (
	ConfidenceVeryLow  ConfidenceLevel = "very_low"
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
)

// ConfidenceFromStrength maps a strength in [0, 1] to its bucket.
func ConfidenceFromStrength(strength float64) ConfidenceLevel {
	switch {
	case strength < 0.2:
		return ConfidenceVeryLow
	case strength < 0.4:
		return ConfidenceLow
	case strength < 0.6:
		return ConfidenceMedium
	case strength < 0.8:
		return ConfidenceHigh
	default:
		return ConfidenceVeryHigh
	}
}

// SubPrediction is the output of one constituent model.
type SubPrediction struct {
	Method         PredictionMethod
	WinProbability float64 // team1
	Confidence     float64
	Importances    map[string]float64
}

// PredictionResult is the fused output of the prediction engine.
type PredictionResult struct {
	MatchID  string
	GameTime int
	Method   PredictionMethod

	PredictedWinner Side
	// WinProbability is team1's probability of winning.
	WinProbability float64
	Strength       float64
	Confidence     ConfidenceLevel

	Algorithmic *SubPrediction
	Model       *SubPrediction

	ModelAgreement float64
	DataQuality    float64
	// DraftScore is the draft advantage from team1's perspective, in [-1, 1].
	DraftScore     float64
	Momentum       Side
	Phase          Phase
	ProcessingTime time.Duration
}

// ProbabilityFor returns the combined win probability of the given side.
func (p PredictionResult) ProbabilityFor(side Side) float64 {
	if side == Team2 {
		return 1 - p.WinProbability
	}
	return p.WinProbability
}
