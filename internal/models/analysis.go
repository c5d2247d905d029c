package models

// Phase is the coarse stage of a game.
type Phase string

const (
	PhaseEarly Phase = "EARLY"
	PhaseMid   Phase = "MID"
	PhaseLate  Phase = "LATE"
)

// TeamAdvantage is one team's advantage over its opponent.
// Gold through CS hold raw signed differences; Vision, ObjectiveControl and Draft are
// already normalized. Overall is the weighted combination in [-1, 1].
type TeamAdvantage struct {
	Gold             float64
	Towers           float64
	Dragons          float64
	Barons           float64
	Kills            float64
	CS               float64
	Vision           float64
	ObjectiveControl float64
	Draft            float64
	Overall          float64
}

// GameAnalysis is the analyzer's assessment of one snapshot.
type GameAnalysis struct {
	MatchID  string
	GameTime int
	Phase    Phase

	Team1Advantage TeamAdvantage
	Team2Advantage TeamAdvantage

	CrucialEvents  int
	MomentumHolder Side
	TimingScore    float64
	Confidence     float64

	PredictedWinner Side
	// WinProbability is team1's probability of winning, clamped to [0.05, 0.95].
	WinProbability float64

	Degraded bool
}

// Advantage returns the advantage vector for the given side.
func (a GameAnalysis) Advantage(side Side) TeamAdvantage {
	if side == Team2 {
		return a.Team2Advantage
	}
	return a.Team1Advantage
}

// ProbabilityFor returns the win probability of the given side.
func (a GameAnalysis) ProbabilityFor(side Side) float64 {
	if side == Team2 {
		return 1 - a.WinProbability
	}
	return a.WinProbability
}
