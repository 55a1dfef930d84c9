package dashboard

// Trend is the directional change between the two most recent readings of a
// named lab series.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// relativeThreshold is the fraction of the previous value a change must
// exceed before it counts as movement.
const relativeThreshold = 0.05

// ComputeTrend compares the current reading against the previous one using a
// relative threshold of 5% of the previous value's magnitude.
func ComputeTrend(current, previous float64) Trend {
	threshold := previous * relativeThreshold
	if threshold < 0 {
		threshold = -threshold
	}
	delta := current - previous
	switch {
	case delta > threshold:
		return TrendUp
	case delta < -threshold:
		return TrendDown
	default:
		return TrendStable
	}
}
