package race

import (
	"math"
	"testing"
	"time"

	"github.com/georace/georace/internal/database/models"
	"github.com/georace/georace/internal/progression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeParticipant() *models.Participant {
	return &models.Participant{
		ID:     "p1",
		RaceID: "r1",
		UserID: "u1",
		Status: models.StatusActive,
	}
}

func TestMergeSamplesCompletionScenario(t *testing.T) {
	p := activeParticipant()
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

	res := MergeSamples(p, []Sample{
		{Day: "2024-01-01", DistanceKm: 4},
		{Day: "2024-01-02", DistanceKm: 7},
	}, 10, now)

	assert.Equal(t, 11.0, res.TotalKm)
	assert.Equal(t, 11.0, res.GainedKm)
	assert.True(t, res.Completed)
	assert.Equal(t, models.StatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)
	assert.True(t, p.CompletedAt.Equal(now))
	assert.Equal(t, int64(110), progression.XPForDistance(res.GainedKm))
}

func TestMergeSamplesIdempotent(t *testing.T) {
	p := activeParticipant()
	now := time.Now()
	batch := []Sample{
		{Day: "2024-01-01", DistanceKm: 4},
		{Day: "2024-01-02", DistanceKm: 7},
	}

	first := MergeSamples(p, batch, 100, now)
	second := MergeSamples(p, batch, 100, now.Add(time.Minute))

	assert.Equal(t, 11.0, first.GainedKm)
	assert.Equal(t, 0.0, second.GainedKm)
	assert.Equal(t, first.TotalKm, second.TotalKm)
}

func TestMergeSamplesDayNeverRegresses(t *testing.T) {
	p := activeParticipant()
	now := time.Now()

	MergeSamples(p, []Sample{{Day: "2024-01-01", DistanceKm: 7}}, 100, now)
	res := MergeSamples(p, []Sample{{Day: "2024-01-01", DistanceKm: 5}}, 100, now)

	assert.Equal(t, 0.0, res.GainedKm)
	assert.Equal(t, 7.0, res.TotalKm)
	require.Len(t, p.Entries, 1)
	assert.Equal(t, 7.0, p.Entries[0].DistanceKm)
}

func TestMergeSamplesPartialIncrease(t *testing.T) {
	p := activeParticipant()
	now := time.Now()

	MergeSamples(p, []Sample{{Day: "2024-01-01", DistanceKm: 3}}, 100, now)
	res := MergeSamples(p, []Sample{{Day: "2024-01-01", DistanceKm: 5}}, 100, now)

	assert.Equal(t, 2.0, res.GainedKm)
	assert.Equal(t, 5.0, res.TotalKm)
}

func TestMergeSamplesSkipsMalformedItems(t *testing.T) {
	p := activeParticipant()
	now := time.Now()

	res := MergeSamples(p, []Sample{
		{Day: "2024-01-01", DistanceKm: 2},
		{Day: "not-a-day", DistanceKm: 3},
		{Day: "2024-01-02", DistanceKm: -1},
		{Day: "2024-01-03", DistanceKm: math.NaN()},
		{Day: "2024-01-04", DistanceKm: math.Inf(1)},
		{Day: "2024-01-05", DistanceKm: 4},
	}, 100, now)

	assert.Equal(t, 2, res.DaysAccepted)
	assert.Equal(t, 4, res.DaysSkipped)
	assert.Equal(t, 6.0, res.TotalKm)
}

func TestMergeSamplesDoesNotRestampCompletion(t *testing.T) {
	p := activeParticipant()
	t0 := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	MergeSamples(p, []Sample{{Day: "2024-01-01", DistanceKm: 12}}, 10, t0)
	require.NotNil(t, p.CompletedAt)

	MergeSamples(p, []Sample{{Day: "2024-01-02", DistanceKm: 5}}, 10, t0.Add(time.Hour))
	assert.True(t, p.CompletedAt.Equal(t0), "completion time must not move on later syncs")
	assert.Equal(t, models.StatusCompleted, p.Status)
}
