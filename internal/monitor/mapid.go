package monitor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/rewired-gh/mobatips/internal/models"
)

var gameTokenPattern = regexp.MustCompile(`^(?:game|map)(\d{1,2})$`)

// gameNumberStrategy derives the game number from one signal, or reports false.
type gameNumberStrategy func(snap *models.TelemetrySnapshot) (int, bool)

var gameNumberChain = []gameNumberStrategy{
	gameFromSeriesField,
	gameFromWinCounts,
	gameFromGameList,
	gameFromMatchID,
}

// GameNumber returns the ordinal of the live game within its series, defaulting to 1.
func GameNumber(snap *models.TelemetrySnapshot) int {
	if snap == nil {
		return 1
	}
	for _, strategy := range gameNumberChain {
		if n, ok := strategy(snap); ok {
			return n
		}
	}
	return 1
}

func gameFromSeriesField(snap *models.TelemetrySnapshot) (int, bool) {
	if snap.Series == nil || snap.Series.GameNumber <= 0 {
		return 0, false
	}
	return snap.Series.GameNumber, true
}

func gameFromWinCounts(snap *models.TelemetrySnapshot) (int, bool) {
	s := snap.Series
	if s == nil || s.Team1Wins < 0 || s.Team2Wins < 0 || s.Team1Wins+s.Team2Wins == 0 {
		return 0, false
	}
	return s.Team1Wins + s.Team2Wins + 1, true
}

func gameFromGameList(snap *models.TelemetrySnapshot) (int, bool) {
	if snap.Series == nil || len(snap.Series.Games) == 0 {
		return 0, false
	}
	lastFinished := 0
	for _, g := range snap.Series.Games {
		switch strings.ToLower(g.Status) {
		case models.StatusLive, models.StatusInProgress:
			if g.Number > 0 {
				return g.Number, true
			}
		case models.StatusFinished:
			if g.Number > lastFinished {
				lastFinished = g.Number
			}
		}
	}
	if lastFinished > 0 {
		return lastFinished + 1, true
	}
	return 0, false
}

// gameFromMatchID looks for tokens such as "game3" or "map-4" in the match ID; the last
// one wins. Short forms like "g2" are not game markers since team tags use them.
func gameFromMatchID(snap *models.TelemetrySnapshot) (int, bool) {
	tokens := strings.FieldsFunc(strings.ToLower(snap.MatchID), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	found := 0
	for i, tok := range tokens {
		digits := ""
		if m := gameTokenPattern.FindStringSubmatch(tok); m != nil {
			digits = m[1]
		} else if (tok == "game" || tok == "map") && i+1 < len(tokens) && len(tokens[i+1]) <= 2 {
			digits = tokens[i+1]
		}
		if n, err := strconv.Atoi(digits); err == nil && n > 0 {
			found = n
		}
	}
	return found, found > 0
}

// MapIdentifier is the deduplication key of one game: league, both teams in a stable
// order, and the game number.
func MapIdentifier(snap *models.TelemetrySnapshot) string {
	if snap == nil {
		return ""
	}
	a, b := normalizeName(snap.Team1), normalizeName(snap.Team2)
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%s-vs-%s:g%d", normalizeName(snap.League), a, b, GameNumber(snap))
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
