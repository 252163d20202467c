// Package progression maps accumulated XP to a level and a rank title.
package progression

// XPPerLevel is the amount of XP that separates two consecutive levels.
const XPPerLevel = 1000

// Tier is one row of the rank table.
type Tier struct {
	MinXP int64  `json:"min_xp"`
	Title string `json:"title"`
}

// Ranks is ordered ascending by MinXP.
var Ranks = []Tier{
	{MinXP: 0, Title: "Recruit"},
	{MinXP: 500, Title: "Guardian"},
	{MinXP: 1500, Title: "Warrior"},
	{MinXP: 3500, Title: "Sentinel"},
	{MinXP: 7000, Title: "Titan"},
	{MinXP: 15000, Title: "Legend"},
}

// DefaultRank is the title of the lowest tier.
func DefaultRank() string {
	return Ranks[0].Title
}

// Level returns floor(xp/1000)+1. Negative input is treated as zero.
func Level(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/XPPerLevel) + 1
}

// Rank returns the title of the highest tier whose threshold xp reaches.
func Rank(xp int64) string {
	title := DefaultRank()
	for _, t := range Ranks {
		if xp >= t.MinXP {
			title = t.Title
		}
	}
	return title
}

// Compute returns level and rank for xp in one call.
func Compute(xp int64) (int, string) {
	return Level(xp), Rank(xp)
}

// Progress is the percentage (0-99) of the current level already earned.
func Progress(xp int64) int {
	if xp < 0 {
		return 0
	}
	return int(xp%XPPerLevel) / 10
}

// NextRank returns the tier following the one xp is in, or false at the top.
func NextRank(xp int64) (Tier, bool) {
	for _, t := range Ranks {
		if t.MinXP > xp {
			return t, true
		}
	}
	return Tier{}, false
}
