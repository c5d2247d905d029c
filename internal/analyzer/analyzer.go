// Package analyzer turns raw match telemetry into a directional advantage assessment.
package analyzer

import (
	"math"

	"github.com/rewired-gh/mobatips/internal/logger"
	"github.com/rewired-gh/mobatips/internal/models"
)

const (
	earlyPhaseEnd = 900  // seconds
	midPhaseEnd   = 1800 // seconds

	momentumWindow = 300 // seconds
	momentumFactor = 1.5

	// timing score grows by timingEventBonus once timingEventSaturation events are seen
	timingEventBonus      = 0.20
	timingEventSaturation = 20

	fullConfidenceTime = 1200 // seconds
)

// Normalization constants divide raw differences before clamping to [-1, 1].
const (
	normGold    = 5000.0
	normTowers  = 5.0
	normDragons = 4.0
	normBarons  = 2.0
	normKills   = 10.0
	normCS      = 100.0
)

var advantageWeights = struct {
	gold, towers, dragons, barons, kills, cs, vision, objectives float64
}{
	gold:       0.25,
	towers:     0.20,
	dragons:    0.15,
	barons:     0.15,
	kills:      0.10,
	cs:         0.05,
	vision:     0.05,
	objectives: 0.05,
}

var phaseMultiplier = map[models.Phase]float64{
	models.PhaseEarly: 0.8,
	models.PhaseMid:   1.0,
	models.PhaseLate:  1.2,
}

var phaseTimingBase = map[models.Phase]float64{
	models.PhaseEarly: 0.6,
	models.PhaseMid:   0.8,
	models.PhaseLate:  1.0,
}

var momentumWeights = map[models.EventType]float64{
	models.EventBaron:        5.0,
	models.EventElderDragon:  4.5,
	models.EventDragonSoul:   4.0,
	models.EventAce:          3.0,
	models.EventInhibitor:    2.5,
	models.EventNexusTower:   2.5,
	models.EventDragon:       2.0,
	models.EventTeamfightWin: 2.0,
	models.EventTower:        1.5,
	models.EventHerald:       1.5,
	models.EventKill:         1.0,
}

const defaultMomentumWeight = 0.5

// Analyzer is a stateless transformer from snapshots to analyses.
type Analyzer struct {
	champions *ChampionTable
}

// New creates an analyzer. A nil table uses the built-in champion data.
func New(champions *ChampionTable) *Analyzer {
	if champions == nil {
		champions = NewChampionTable(nil)
	}
	return &Analyzer{champions: champions}
}

// Champions exposes the champion table used for draft scoring.
func (a *Analyzer) Champions() *ChampionTable {
	return a.champions
}

// Analyze never fails: an invalid snapshot yields a degraded analysis.
func (a *Analyzer) Analyze(snap *models.TelemetrySnapshot) models.GameAnalysis {
	if err := snap.Validate(); err != nil {
		id := ""
		if snap != nil {
			id = snap.MatchID
		}
		logger.Debug("Degraded analysis for match %q: %v", id, err)
		return Degraded(snap)
	}

	phase := PhaseAt(snap.GameTime)
	draftAdv := a.champions.DraftAdvantage(snap.Draft)

	team1 := teamAdvantage(snap.Team1Stats, snap.Team2Stats, draftAdv)
	team2 := teamAdvantage(snap.Team2Stats, snap.Team1Stats, -draftAdv)

	crucial := CrucialEvents(snap.Events)
	timing := TimingScore(phase, len(snap.Events))

	x := (team1.Overall - team2.Overall) * phaseMultiplier[phase] * timing
	prob := clamp(0.5+0.3*x, 0.05, 0.95)

	return models.GameAnalysis{
		MatchID:         snap.MatchID,
		GameTime:        snap.GameTime,
		Phase:           phase,
		Team1Advantage:  team1,
		Team2Advantage:  team2,
		CrucialEvents:   crucial,
		MomentumHolder:  Momentum(snap.Events, snap.GameTime),
		TimingScore:     timing,
		Confidence:      confidence(snap.GameTime, crucial, prob),
		PredictedWinner: winner(prob),
		WinProbability:  prob,
	}
}

// Degraded returns the neutral fallback analysis.
func Degraded(snap *models.TelemetrySnapshot) models.GameAnalysis {
	ga := models.GameAnalysis{
		Phase:          models.PhaseEarly,
		Confidence:     0.1,
		WinProbability: 0.5,
		Degraded:       true,
	}
	if snap != nil {
		ga.MatchID = snap.MatchID
		ga.GameTime = snap.GameTime
	}
	return ga
}

// PhaseAt returns the phase for a game time in seconds.
func PhaseAt(gameTime int) models.Phase {
	switch {
	case gameTime < earlyPhaseEnd:
		return models.PhaseEarly
	case gameTime < midPhaseEnd:
		return models.PhaseMid
	default:
		return models.PhaseLate
	}
}

func teamAdvantage(own, enemy models.TeamStats, draft float64) models.TeamAdvantage {
	adv := models.TeamAdvantage{
		Gold:             float64(own.Gold - enemy.Gold),
		Towers:           float64(own.Towers - enemy.Towers),
		Dragons:          float64(own.Dragons - enemy.Dragons),
		Barons:           float64(own.Barons - enemy.Barons),
		Kills:            float64(own.Kills - enemy.Kills),
		CS:               float64(own.CS - enemy.CS),
		Vision:           visionAdvantage(own, enemy),
		ObjectiveControl: objectiveControl(own, enemy),
		Draft:            draft,
	}
	adv.Overall = OverallAdvantage(adv)
	return adv
}

// Normalized scales each component to [-1, 1]. ObjectiveControl becomes a signed share
// (0 when objectives are evenly split) and Overall is left untouched.
func Normalized(adv models.TeamAdvantage) models.TeamAdvantage {
	return models.TeamAdvantage{
		Gold:             clamp(adv.Gold/normGold, -1, 1),
		Towers:           clamp(adv.Towers/normTowers, -1, 1),
		Dragons:          clamp(adv.Dragons/normDragons, -1, 1),
		Barons:           clamp(adv.Barons/normBarons, -1, 1),
		Kills:            clamp(adv.Kills/normKills, -1, 1),
		CS:               clamp(adv.CS/normCS, -1, 1),
		Vision:           clamp(adv.Vision, -1, 1),
		ObjectiveControl: clamp((adv.ObjectiveControl-0.5)*2, -1, 1),
		Draft:            clamp(adv.Draft, -1, 1),
		Overall:          adv.Overall,
	}
}

// OverallAdvantage combines the normalized components with fixed weights.
func OverallAdvantage(adv models.TeamAdvantage) float64 {
	n := Normalized(adv)
	w := advantageWeights
	overall := w.gold*n.Gold +
		w.towers*n.Towers +
		w.dragons*n.Dragons +
		w.barons*n.Barons +
		w.kills*n.Kills +
		w.cs*n.CS +
		w.vision*n.Vision +
		w.objectives*n.ObjectiveControl
	return clamp(overall, -1, 1)
}

func visionScore(s models.TeamStats) float64 {
	return float64(s.WardsPlaced) + 0.5*float64(s.WardsDestroyed)
}

func visionAdvantage(own, enemy models.TeamStats) float64 {
	o, e := visionScore(own), visionScore(enemy)
	if o+e == 0 {
		return 0
	}
	return (o - e) / (o + e)
}

func objectiveScore(s models.TeamStats) float64 {
	return float64(s.Dragons)*2 + float64(s.Barons)*3 + float64(s.Towers) + float64(s.Heralds)*1.5
}

// objectiveControl is the team's share of weighted objectives, 0.5 when none were taken.
func objectiveControl(own, enemy models.TeamStats) float64 {
	o, e := objectiveScore(own), objectiveScore(enemy)
	if o+e == 0 {
		return 0.5
	}
	return o / (o + e)
}

// CrucialEvents scores the game-deciding events seen so far.
func CrucialEvents(events []models.GameEvent) int {
	count := 0
	for _, ev := range events {
		switch ev.Type {
		case models.EventDragonSoul, models.EventElderDragon, models.EventBaron, models.EventAce:
			count += 2
		case models.EventInhibitor, models.EventNexusTower:
			count++
		case models.EventTeamfightWin:
			if PhaseAt(ev.Timestamp) != models.PhaseEarly {
				count++
			}
		}
	}
	return count
}

// Momentum returns the side whose weighted events in the trailing window outweigh the
// opponent's by at least momentumFactor, or SideNone.
func Momentum(events []models.GameEvent, gameTime int) models.Side {
	var s1, s2 float64
	from := gameTime - momentumWindow
	for _, ev := range events {
		if ev.Timestamp < from || ev.Timestamp > gameTime {
			continue
		}
		w, ok := momentumWeights[ev.Type]
		if !ok {
			w = defaultMomentumWeight
		}
		switch ev.Team {
		case models.Team1:
			s1 += w
		case models.Team2:
			s2 += w
		}
	}

	switch {
	case s1 > 0 && s1 >= s2*momentumFactor:
		return models.Team1
	case s2 > 0 && s2 >= s1*momentumFactor:
		return models.Team2
	default:
		return models.SideNone
	}
}

// TimingScore is the phase base weight plus a bonus that grows with event count, capped at 1.
func TimingScore(phase models.Phase, events int) float64 {
	bonus := timingEventBonus * math.Min(float64(events)/timingEventSaturation, 1)
	return math.Min(phaseTimingBase[phase]+bonus, 1.0)
}

func confidence(gameTime, crucial int, prob float64) float64 {
	timeConf := math.Min(float64(gameTime)/fullConfidenceTime, 1.0) * 0.4
	eventConf := math.Min(float64(crucial)*0.1, 0.4)
	strengthConf := math.Abs(prob-0.5) * 2 * 0.3
	return clamp(timeConf+eventConf+strengthConf, 0.1, 0.95)
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
