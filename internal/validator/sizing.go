package validator

// Risk levels attached to tips.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

var evBands = []struct {
	below float64 // EV percent
	units float64
}{
	{5, 0.5},
	{10, 1},
	{15, 1.5},
	{25, 2},
}

const topBandUnits = 3

// Units sizes a stake from EV percent and prediction strength. It is non-decreasing in
// both arguments and capped at maxUnits when maxUnits is positive.
func Units(evPct, strength, maxUnits float64) float64 {
	units := float64(topBandUnits)
	for _, b := range evBands {
		if evPct < b.below {
			units = b.units
			break
		}
	}

	switch {
	case strength >= 0.6:
		units += 1
	case strength >= 0.4:
		units += 0.5
	}

	if maxUnits > 0 && units > maxUnits {
		units = maxUnits
	}
	return units
}

// RiskLevel buckets prediction strength.
func RiskLevel(strength float64) string {
	switch {
	case strength >= 0.6:
		return RiskLow
	case strength >= 0.4:
		return RiskMedium
	default:
		return RiskHigh
	}
}
