package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXPThreshold(t *testing.T) {
	assert.Equal(t, int64(0), XPThreshold(0))
	assert.Equal(t, int64(0), XPThreshold(1))
	assert.Equal(t, int64(100), XPThreshold(2))
	assert.Equal(t, int64(282), XPThreshold(3))
	assert.Equal(t, int64(519), XPThreshold(4))

	// strictly increasing from level 2 on
	for level := 2; level < 100; level++ {
		assert.Less(t, XPThreshold(level), XPThreshold(level+1), "level %d", level)
	}
}

func TestLevelFromXPProperty(t *testing.T) {
	for xp := int64(0); xp < 50000; xp += 37 {
		level := LevelFromXP(xp)
		assert.GreaterOrEqual(t, level, 1)
		assert.LessOrEqual(t, XPThreshold(level), xp)
		assert.Greater(t, XPThreshold(level+1), xp)
	}
}

func TestXPForDistance(t *testing.T) {
	assert.Equal(t, int64(110), XPForDistance(11))
	assert.Equal(t, int64(4), XPForDistance(0.45))
	assert.Equal(t, int64(0), XPForDistance(0))
	assert.Equal(t, int64(0), XPForDistance(-3))
}

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot(0)
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, int64(0), s.CurrentThreshold)
	assert.Equal(t, int64(100), s.NextThreshold)
	assert.Equal(t, int64(100), s.XPToNextLevel)
	assert.Equal(t, 0.0, s.Progress)

	s = NewSnapshot(150)
	assert.Equal(t, 2, s.Level)
	assert.Equal(t, int64(100), s.CurrentThreshold)
	assert.Equal(t, int64(282), s.NextThreshold)
	assert.Equal(t, int64(50), s.XPIntoLevel)
	assert.Equal(t, int64(132), s.XPToNextLevel)
	assert.Equal(t, 0.2747, s.Progress) // 50/182 rounded to 4 places
}

func TestNewSnapshotDeterministic(t *testing.T) {
	a := NewSnapshot(12345)
	b := NewSnapshot(12345)
	assert.Equal(t, a, b)
}
