package domain

import (
	"fmt"
	"strings"
)

// Tier ranks availability for participants and urgency for runs.
//
// For a participant, High means most willing to play. For a run, the tier is
// its escalation urgency: it starts Low and only asks the most willing, and
// each escalation widens the pool.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

var tierNames = map[Tier]string{
	TierLow:    "low",
	TierMedium: "medium",
	TierHigh:   "high",
}

// ParseTier accepts "low", "medium" or "high", and the availability
// reactions used in the channel (green, yellow, red).
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "red", "🔴":
		return TierLow, nil
	case "medium", "yellow", "🟡":
		return TierMedium, nil
	case "high", "green", "🟢":
		return TierHigh, nil
	}
	return TierLow, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) Valid() bool {
	return t >= TierLow && t <= TierHigh
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// MinimumAvailability is the lowest participant availability a run at this
// urgency may solicit.
func (t Tier) MinimumAvailability() Tier {
	return TierHigh - t
}

// Admits reports whether a participant with the given availability may be
// solicited by a run at this urgency.
func (t Tier) Admits(availability Tier) bool {
	return availability >= t.MinimumAvailability()
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
