package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{0, 1},
		{999, 1},
		{1000, 2},
		{1999, 2},
		{2500, 3},
		{15000, 16},
		{-5, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.xp), "Level(%d)", tt.xp)
	}
}

func TestRank_Boundaries(t *testing.T) {
	tests := []struct {
		xp   int64
		want string
	}{
		{0, "Recruit"},
		{499, "Recruit"},
		{500, "Guardian"},
		{1499, "Guardian"},
		{1500, "Warrior"},
		{3500, "Sentinel"},
		{6999, "Sentinel"},
		{7000, "Titan"},
		{15000, "Legend"},
		{1 << 40, "Legend"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rank(tt.xp), "Rank(%d)", tt.xp)
	}
}

func TestRank_Monotonic(t *testing.T) {
	index := func(title string) int {
		for i, r := range Ranks {
			if r.Title == title {
				return i
			}
		}
		return -1
	}

	prev := 0
	for xp := int64(0); xp <= 20000; xp += 50 {
		cur := index(Rank(xp))
		if cur < prev {
			t.Fatalf("rank decreased at xp=%d", xp)
		}
		prev = cur
	}
}

func TestCompute_Idempotent(t *testing.T) {
	for _, xp := range []int64{0, 499, 500, 1000, 3499, 123456} {
		l1, r1 := Compute(xp)
		l2, r2 := Compute(xp)
		assert.Equal(t, l1, l2)
		assert.Equal(t, r1, r2)
	}
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(0))
	assert.Equal(t, 25, Progress(250))
	assert.Equal(t, 99, Progress(1999))
	assert.Equal(t, 0, Progress(2000))
}

func TestNextRank(t *testing.T) {
	next, ok := NextRank(499)
	assert.True(t, ok)
	assert.Equal(t, "Guardian", next.Title)

	_, ok = NextRank(15000)
	assert.False(t, ok)
}
