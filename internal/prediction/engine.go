// Package prediction fuses the rule-based analysis with a model score into one win probability.
package prediction

import (
	"math"
	"time"

	"github.com/rewired-gh/mobatips/internal/analyzer"
	"github.com/rewired-gh/mobatips/internal/logger"
	"github.com/rewired-gh/mobatips/internal/models"
)

const (
	minProbability = 0.05
	maxProbability = 0.95
)

// Data quality components.
const (
	qualityGold          = 0.4
	qualityEvents        = 0.2
	qualityDraftComplete = 0.3
	qualityDraftPartial  = 0.15
	qualityMetadata      = 0.1
)

// Config controls how the engine fuses its two sub-predictions.
type Config struct {
	ModelWeight       float64
	AlgorithmicWeight float64
}

// DefaultConfig returns the default 60/40 model/algorithmic blend.
func DefaultConfig() Config {
	return Config{ModelWeight: 0.6, AlgorithmicWeight: 0.4}
}

// Engine is stateless apart from its collaborators and is safe for concurrent use.
type Engine struct {
	analyzer *analyzer.Analyzer
	model    Model
	cfg      Config
	now      func() time.Time
}

// New creates an engine. A nil analyzer or model falls back to the built-in ones.
// Blend weights that do not sum to 1 are normalized.
func New(a *analyzer.Analyzer, m Model, cfg Config) *Engine {
	if a == nil {
		a = analyzer.New(nil)
	}
	if m == nil {
		m = NewHeuristicModel(nil)
	}
	sum := cfg.ModelWeight + cfg.AlgorithmicWeight
	if cfg.ModelWeight < 0 || cfg.AlgorithmicWeight < 0 || sum <= 0 {
		logger.Warn("Invalid prediction blend %.2f/%.2f, using defaults", cfg.ModelWeight, cfg.AlgorithmicWeight)
		cfg = DefaultConfig()
	} else if math.Abs(sum-1) > 1e-9 {
		cfg.ModelWeight /= sum
		cfg.AlgorithmicWeight /= sum
	}
	return &Engine{analyzer: a, model: m, cfg: cfg, now: time.Now}
}

// Analyzer returns the analyzer the engine scores with.
func (e *Engine) Analyzer() *analyzer.Analyzer {
	return e.analyzer
}

// Predict produces a prediction for the snapshot. A snapshot without game time yields a
// neutral very-low-confidence result.
func (e *Engine) Predict(snap *models.TelemetrySnapshot, method models.PredictionMethod) models.PredictionResult {
	start := e.now()
	if method == "" {
		method = models.MethodHybrid
	}

	if snap == nil || snap.GameTime <= 0 {
		res := neutral(snap, method)
		res.ProcessingTime = e.now().Sub(start)
		return res
	}

	ga := e.analyzer.Analyze(snap)
	dq := DataQuality(snap)
	if ga.Degraded {
		dq = 0
	}

	algo := &models.SubPrediction{
		Method:         models.MethodAlgorithmic,
		WinProbability: ga.WinProbability,
		Confidence:     ga.Confidence,
	}

	out := e.model.Score(BuildFeatures(snap, ga, e.analyzer.Champions()))
	pm := clamp(out.Probability, minProbability, maxProbability)
	model := &models.SubPrediction{
		Method:         models.MethodModel,
		WinProbability: pm,
		Confidence:     math.Abs(pm-0.5) * 2 * dq,
		Importances:    out.Importances,
	}

	agreement := 1 - math.Abs(pm-ga.WinProbability)

	var prob float64
	switch method {
	case models.MethodAlgorithmic:
		prob = ga.WinProbability
	case models.MethodModel:
		prob = pm
	default:
		method = models.MethodHybrid
		prob = e.cfg.ModelWeight*pm + e.cfg.AlgorithmicWeight*ga.WinProbability
	}
	prob = clamp(prob, minProbability, maxProbability)

	strength := math.Abs(prob-0.5) * 2 * dq
	if method == models.MethodHybrid {
		strength *= agreement
	}
	strength = clamp(strength, 0, 1)

	res := models.PredictionResult{
		MatchID:         snap.MatchID,
		GameTime:        snap.GameTime,
		Method:          method,
		PredictedWinner: winner(prob),
		WinProbability:  prob,
		Strength:        strength,
		Confidence:      models.ConfidenceFromStrength(strength),
		Algorithmic:     algo,
		Model:           model,
		ModelAgreement:  agreement,
		DataQuality:     dq,
		DraftScore:      ga.Team1Advantage.Draft,
		Momentum:        ga.MomentumHolder,
		Phase:           ga.Phase,
	}
	res.ProcessingTime = e.now().Sub(start)
	return res
}

func neutral(snap *models.TelemetrySnapshot, method models.PredictionMethod) models.PredictionResult {
	res := models.PredictionResult{
		Method:         method,
		WinProbability: 0.5,
		Confidence:     models.ConfidenceVeryLow,
		ModelAgreement: 1,
		Phase:          models.PhaseEarly,
	}
	if snap != nil {
		res.MatchID = snap.MatchID
		res.GameTime = snap.GameTime
	}
	return res
}

// DataQuality scores how complete the snapshot is, in [0, 1].
func DataQuality(snap *models.TelemetrySnapshot) float64 {
	if snap == nil {
		return 0
	}
	var q float64
	if snap.Team1Stats.Gold > 0 && snap.Team2Stats.Gold > 0 {
		q += qualityGold
	}
	if len(snap.Events) > 0 {
		q += qualityEvents
	}
	switch {
	case snap.Draft.Complete():
		q += qualityDraftComplete
	case snap.Draft != nil && (len(snap.Draft.Team1Picks) > 0 || len(snap.Draft.Team2Picks) > 0):
		q += qualityDraftPartial
	}
	if snap.Team1 != "" && snap.Team2 != "" && snap.League != "" {
		q += qualityMetadata
	}
	return math.Min(q, 1)
}

func winner(prob float64) models.Side {
	switch {
	case prob > 0.5:
		return models.Team1
	case prob < 0.5:
		return models.Team2
	default:
		return models.SideNone
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
