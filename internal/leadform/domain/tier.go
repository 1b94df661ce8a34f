package domain

// Tier is the classification derived from a lead's total score.
type Tier string

const (
	TierHot          Tier = "HOT"
	TierWarm         Tier = "WARM"
	TierCold         Tier = "COLD"
	TierDisqualified Tier = "DISQUALIFIED"
)

// ParseTier accepts one of the four tier names.
func ParseTier(raw string) (Tier, bool) {
	switch t := Tier(raw); t {
	case TierHot, TierWarm, TierCold, TierDisqualified:
		return t, true
	}
	return "", false
}

func (t Tier) String() string { return string(t) }
