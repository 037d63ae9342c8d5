package progression

import "math"

// XPPerKm is the amount of XP awarded per kilometer of confirmed distance.
const XPPerKm = 10

// Snapshot describes a user's position within the level curve.
type Snapshot struct {
	Level            int     `json:"level"`
	TotalXP          int64   `json:"total_xp"`
	CurrentThreshold int64   `json:"current_threshold"`
	NextThreshold    int64   `json:"next_threshold"`
	XPIntoLevel      int64   `json:"xp_into_level"`
	XPToNextLevel    int64   `json:"xp_to_next_level"`
	Progress         float64 `json:"progress"`
}

// XPThreshold returns the total XP required to reach the given level.
// Level 1 is free; beyond that the curve is floor(100 * (level-1)^1.5).
func XPThreshold(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(math.Floor(100 * math.Pow(float64(level-1), 1.5)))
}

// LevelFromXP returns the greatest level whose threshold does not exceed
// totalXP. The result is always at least 1.
func LevelFromXP(totalXP int64) int {
	level := 1
	for XPThreshold(level+1) <= totalXP {
		level++
	}
	return level
}

// XPForDistance converts a distance gain in kilometers to XP.
func XPForDistance(deltaKm float64) int64 {
	if deltaKm <= 0 {
		return 0
	}
	return int64(math.Floor(deltaKm * XPPerKm))
}

// NewSnapshot computes the full progression view for a given XP total.
func NewSnapshot(totalXP int64) Snapshot {
	level := LevelFromXP(totalXP)
	current := XPThreshold(level)
	next := XPThreshold(level + 1)

	span := next - current
	if span < 1 {
		span = 1
	}
	into := totalXP - current
	remaining := next - totalXP
	if remaining < 0 {
		remaining = 0
	}

	progress := float64(into) / float64(span)
	progress = math.Round(progress*10000) / 10000

	return Snapshot{
		Level:            level,
		TotalXP:          totalXP,
		CurrentThreshold: current,
		NextThreshold:    next,
		XPIntoLevel:      into,
		XPToNextLevel:    remaining,
		Progress:         progress,
	}
}
