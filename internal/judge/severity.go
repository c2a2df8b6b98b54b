package judge

// Tier is a discrete visual severity bucket derived from the danger score.
// Higher ranks are more severe.
type Tier struct {
	Rank        int
	BarColor    string
	AccentColor string
	Icon        string
}

// Bands are contiguous over [0,100]: <30, 30-49, 50-74, >=75. Scores
// outside the nominal range fall into the nearest edge band.
var tiers = []Tier{
	{Rank: 0, BarColor: "#06C755", AccentColor: "#059647", Icon: "✅"},
	{Rank: 1, BarColor: "#FFB400", AccentColor: "#C47F00", Icon: "⚠️"},
	{Rank: 2, BarColor: "#FF7043", AccentColor: "#E64A19", Icon: "🚨"},
	{Rank: 3, BarColor: "#FF3B30", AccentColor: "#C0271D", Icon: "💀"},
}

// TierFor maps a danger score to its severity tier. Total over all inputs.
func TierFor(score float64) Tier {
	switch {
	case score < 30:
		return tiers[0]
	case score < 50:
		return tiers[1]
	case score < 75:
		return tiers[2]
	default:
		return tiers[3]
	}
}
