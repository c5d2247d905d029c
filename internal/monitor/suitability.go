package monitor

import (
	"fmt"
	"strings"

	"github.com/rewired-gh/mobatips/internal/models"
	"github.com/rewired-gh/mobatips/internal/prediction"
)

// suitable reports whether a live match is a candidate for tip generation, with the reason
// when it is not.
func (m *Monitor) suitable(snap *models.TelemetrySnapshot) (bool, string) {
	if !m.leagueAllowed(snap.League) {
		return false, fmt.Sprintf("league %q not allowed", snap.League)
	}

	elapsed := snap.Elapsed()
	if elapsed < m.config.MinGameTime || (m.config.MaxGameTime > 0 && elapsed > m.config.MaxGameTime) {
		return false, fmt.Sprintf("game time %s outside [%s, %s]", elapsed, m.config.MinGameTime, m.config.MaxGameTime)
	}

	if !snap.DraftReady(m.config.RequireCompleteDraft) {
		return false, "draft incomplete"
	}

	if dq := prediction.DataQuality(snap); dq < m.config.MinDataQuality {
		return false, fmt.Sprintf("data quality %.2f below %.2f", dq, m.config.MinDataQuality)
	}
	return true, ""
}

func (m *Monitor) leagueAllowed(league string) bool {
	if len(m.leagues) == 0 {
		return true
	}
	_, ok := m.leagues[strings.ToLower(strings.TrimSpace(league))]
	return ok
}
