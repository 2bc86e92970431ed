package features

import (
	"fmt"
	"strings"
)

// Tier is the account tier reported by the parQR back end
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// ParseTier normalizes a tier value from external input. Unknown values are free.
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierPremium:
		return TierPremium
	default:
		return TierFree
	}
}

// Set is the capability set derived from a tier
type Set struct {
	CanAccessChat   bool
	CanSendMessages bool
	CanCreateGroups bool
}

// Evaluate maps a tier to its capabilities. Only premium unlocks anything.
func Evaluate(tier Tier) Set {
	premium := tier == TierPremium
	return Set{
		CanAccessChat:   premium,
		CanSendMessages: premium,
		CanCreateGroups: premium,
	}
}

func (s Set) String() string {
	return fmt.Sprintf("chat=%t send=%t groups=%t", s.CanAccessChat, s.CanSendMessages, s.CanCreateGroups)
}
