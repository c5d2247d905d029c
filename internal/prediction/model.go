package prediction

import (
	"math"
	"sort"

	"github.com/rewired-gh/mobatips/internal/analyzer"
	"github.com/rewired-gh/mobatips/internal/models"
)

// Feature names produced by BuildFeatures.
const (
	FeatureGold        = "gold_diff"
	FeatureTowers      = "tower_diff"
	FeatureDragons     = "dragon_diff"
	FeatureBarons      = "baron_diff"
	FeatureKills       = "kill_diff"
	FeatureCS          = "cs_diff"
	FeatureKDA         = "kda_diff"
	FeatureVision      = "vision_adv"
	FeatureObjectives  = "objective_control"
	FeatureDraft       = "draft_adv"
	FeatureMeta        = "meta_strength"
	FeatureSynergy     = "composition_synergy"
	FeatureMomentum    = "momentum"
	FeatureGameTimeNrm = "game_time_norm"
)

const (
	kdaNormalization     = 5.0
	metaNormalization    = 0.05
	synergyNormalization = 0.04
	lateGameTime         = 1800.0
)

// Features is a named feature vector, every value in [-1, 1] from team1's perspective.
type Features map[string]float64

// Names returns the feature names in a stable order.
func (f Features) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModelOutput is what a learned model returns for one feature vector.
type ModelOutput struct {
	// Probability is team1's win probability.
	Probability float64
	Importances map[string]float64
}

// Model is the seam for a learned predictor. Implementations must be safe for
// concurrent use and must not block.
type Model interface {
	Name() string
	Score(f Features) ModelOutput
}

// BuildFeatures derives the model input from a snapshot and its analysis.
func BuildFeatures(snap *models.TelemetrySnapshot, ga models.GameAnalysis, champions *analyzer.ChampionTable) Features {
	n := analyzer.Normalized(ga.Team1Advantage)
	f := Features{
		FeatureGold:        n.Gold,
		FeatureTowers:      n.Towers,
		FeatureDragons:     n.Dragons,
		FeatureBarons:      n.Barons,
		FeatureKills:       n.Kills,
		FeatureCS:          n.CS,
		FeatureVision:      n.Vision,
		FeatureObjectives:  n.ObjectiveControl,
		FeatureDraft:       n.Draft,
		FeatureMomentum:    sideSign(ga.MomentumHolder),
		FeatureGameTimeNrm: clamp(float64(snap.GameTime)/lateGameTime, 0, 1),
	}
	f[FeatureKDA] = clamp((kda(snap.Team1Stats)-kda(snap.Team2Stats))/kdaNormalization, -1, 1)

	if d := snap.Draft; d != nil && len(d.Team1Picks) > 0 && len(d.Team2Picks) > 0 && champions != nil {
		meta := champions.AverageWinrate(d.Team1Picks) - champions.AverageWinrate(d.Team2Picks)
		synergy := champions.CompositionBonus(d.Team1Picks) - champions.CompositionBonus(d.Team2Picks)
		f[FeatureMeta] = clamp(meta/metaNormalization, -1, 1)
		f[FeatureSynergy] = clamp(synergy/synergyNormalization, -1, 1)
	} else {
		f[FeatureMeta] = 0
		f[FeatureSynergy] = 0
	}
	return f
}

func kda(s models.TeamStats) float64 {
	return float64(s.Kills+s.Assists) / math.Max(float64(s.Deaths), 1)
}

func sideSign(s models.Side) float64 {
	switch s {
	case models.Team1:
		return 1
	case models.Team2:
		return -1
	default:
		return 0
	}
}

var defaultWeights = map[string]float64{
	FeatureGold:       1.1,
	FeatureTowers:     0.7,
	FeatureDragons:    0.5,
	FeatureBarons:     0.7,
	FeatureKills:      0.4,
	FeatureCS:         0.2,
	FeatureKDA:        0.3,
	FeatureVision:     0.2,
	FeatureObjectives: 0.3,
	FeatureDraft:      0.8,
	FeatureMeta:       0.4,
	FeatureSynergy:    0.3,
	FeatureMomentum:   0.25,
}

// HeuristicModel is a fixed-weight logistic model used when no trained model is configured.
type HeuristicModel struct {
	weights map[string]float64
}

// NewHeuristicModel returns a model with the given weights, or the defaults when nil.
func NewHeuristicModel(weights map[string]float64) *HeuristicModel {
	if len(weights) == 0 {
		weights = defaultWeights
	}
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &HeuristicModel{weights: w}
}

func (m *HeuristicModel) Name() string { return "heuristic-logistic" }

// Score returns a logistic win probability for team1 clamped to [0.05, 0.95], with each
// feature's share of the absolute contribution as its importance.
func (m *HeuristicModel) Score(f Features) ModelOutput {
	var z, total float64
	contrib := make(map[string]float64, len(f))
	for _, name := range f.Names() {
		c := m.weights[name] * f[name]
		z += c
		contrib[name] = math.Abs(c)
		total += math.Abs(c)
	}

	importances := make(map[string]float64, len(contrib))
	for name, c := range contrib {
		if total > 0 {
			importances[name] = c / total
		} else {
			importances[name] = 0
		}
	}

	return ModelOutput{
		Probability: clamp(1/(1+math.Exp(-z)), minProbability, maxProbability),
		Importances: importances,
	}
}
