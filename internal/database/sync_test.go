package database

import (
	"testing"
	"time"

	"github.com/georace/georace/internal/database/models"
	"github.com/georace/georace/internal/race"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// One named in-memory database per test; cache=shared keeps every
	// pooled connection on the same database.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Race{},
		&models.Participant{},
		&models.DailyDistance{},
	))
	return db
}

// seedRace creates a user and a ~10 km race whose window contains now,
// with the user joined as an active participant.
func seedRace(t *testing.T, db *gorm.DB, userID string, now time.Time) *models.Race {
	t.Helper()
	require.NoError(t, CreateUser(db, &models.User{ID: userID, Username: userID, Nickname: userID, Level: 1}))

	raceRec := &models.Race{
		ID:        "race-" + userID,
		Name:      "equator dash",
		CreatorID: userID,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		StartLat:  0, StartLng: 0,
		EndLat: 0, EndLng: 0.0899322,
	}
	require.NoError(t, CreateRace(db, raceRec))

	_, err := JoinRace(db, raceRec.ID, userID, now.Add(-30*time.Minute))
	require.NoError(t, err)
	return raceRec
}

func TestApplySyncBatchCompletesRace(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	raceRec := seedRace(t, db, "u1", now)

	outcome, err := ApplySyncBatch(db, "u1", []race.Sample{
		{Day: "2024-01-01", DistanceKm: 4},
		{Day: "2024-01-02", DistanceKm: 7},
	}, 90*time.Second, now)
	require.NoError(t, err)

	assert.True(t, outcome.Applied)
	assert.Equal(t, raceRec.ID, outcome.RaceID)
	assert.Equal(t, 11.0, outcome.TotalKm)
	assert.Equal(t, 11.0, outcome.GainedKm)
	assert.True(t, outcome.Completed)
	assert.Equal(t, int64(110), outcome.XPGained)
	assert.Equal(t, 2, outcome.Level) // 110 XP crosses the level-2 threshold

	user, err := GetUserByID(db, "u1")
	require.NoError(t, err)
	assert.Equal(t, 11.0, user.LifetimeDistanceKm)
	assert.Equal(t, int64(110), user.TotalXP)
	require.NotNil(t, user.LastSyncedAt)

	// the sync's observation also seeded a provisional finish resolution
	stored, err := GetRace(db, raceRec.ID)
	require.NoError(t, err)
	assert.Equal(t, race.FinishProvisional, race.StatusOf(stored.Finish))
	assert.Equal(t, "u1", stored.Finish.ProvisionalWinnerID)
}

func TestApplySyncBatchIdempotent(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	seedRace(t, db, "u1", now)

	batch := []race.Sample{{Day: "2024-01-01", DistanceKm: 3}}

	first, err := ApplySyncBatch(db, "u1", batch, 90*time.Second, now)
	require.NoError(t, err)
	second, err := ApplySyncBatch(db, "u1", batch, 90*time.Second, now.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 3.0, first.GainedKm)
	assert.Equal(t, 0.0, second.GainedKm)
	assert.Equal(t, first.TotalKm, second.TotalKm)
	assert.Equal(t, int64(0), second.XPGained)

	// the retry still counts as a sync
	user, err := GetUserByID(db, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, user.LifetimeDistanceKm)
	require.NotNil(t, user.LastSyncedAt)
	assert.True(t, user.LastSyncedAt.Equal(now.Add(time.Minute)))
}

func TestApplySyncBatchNoEligibleParticipation(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, CreateUser(db, &models.User{ID: "loner", Username: "loner", Level: 1}))

	outcome, err := ApplySyncBatch(db, "loner", []race.Sample{
		{Day: "2024-01-01", DistanceKm: 5},
	}, 90*time.Second, time.Now())

	require.NoError(t, err, "a missing participation is a no-op, not an error")
	assert.False(t, outcome.Applied)
	assert.Equal(t, 0.0, outcome.GainedKm)
}

func TestApplySyncBatchSizeBounds(t *testing.T) {
	db := openTestDB(t)

	_, err := ApplySyncBatch(db, "u1", nil, 90*time.Second, time.Now())
	assert.ErrorIs(t, err, ErrBatchSize)

	big := make([]race.Sample, race.MaxBatchSize+1)
	_, err = ApplySyncBatch(db, "u1", big, 90*time.Second, time.Now())
	assert.ErrorIs(t, err, ErrBatchSize)
}

func TestObserveRaceFinalizesAfterWindow(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	raceRec := seedRace(t, db, "u1", now)

	_, err := ApplySyncBatch(db, "u1", []race.Sample{
		{Day: "2024-01-01", DistanceKm: 11},
	}, 90*time.Second, now)
	require.NoError(t, err)

	// inside the window: still provisional
	observed, err := ObserveRace(db, raceRec.ID, 90*time.Second, now.Add(10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, race.FinishProvisional, race.StatusOf(observed.Finish))

	// past the window: the provisional winner commits
	observed, err = ObserveRace(db, raceRec.ID, 90*time.Second, now.Add(91*time.Second))
	require.NoError(t, err)
	assert.Equal(t, race.FinishFinal, race.StatusOf(observed.Finish))
	assert.Equal(t, "u1", observed.Finish.FinalWinnerID)

	// and the decision is persisted
	stored, err := GetRace(db, raceRec.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.Finish.FinalWinnerID)
}

func TestWithdrawClearsFinishResolution(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	raceRec := seedRace(t, db, "u1", now)

	_, err := ApplySyncBatch(db, "u1", []race.Sample{
		{Day: "2024-01-01", DistanceKm: 11},
	}, 90*time.Second, now)
	require.NoError(t, err)

	require.NoError(t, WithdrawParticipant(db, raceRec.ID, "u1"))

	observed, err := ObserveRace(db, raceRec.ID, 90*time.Second, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, race.FinishNone, race.StatusOf(observed.Finish))
}

func TestJoinRaceInvariants(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	raceRec := seedRace(t, db, "u1", now)

	// double join
	_, err := JoinRace(db, raceRec.ID, "u1", now)
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	// a second simultaneously-active race is rejected
	other := &models.Race{
		ID:        "race-other",
		Name:      "second wind",
		CreatorID: "u1",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		EndLng:    0.05,
	}
	require.NoError(t, CreateRace(db, other))
	_, err = JoinRace(db, other.ID, "u1", now)
	assert.ErrorIs(t, err, ErrActiveParticipation)

	// after withdrawing, joining becomes possible again
	require.NoError(t, WithdrawParticipant(db, raceRec.ID, "u1"))
	_, err = JoinRace(db, other.ID, "u1", now)
	assert.NoError(t, err)
}
