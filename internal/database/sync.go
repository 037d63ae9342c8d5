package database

import (
	"errors"
	"time"

	"github.com/georace/georace/internal/database/models"
	"github.com/georace/georace/internal/progression"
	"github.com/georace/georace/internal/race"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrBatchSize = errors.New("sync batch must contain between 1 and 60 samples")

// SyncOutcome reports what a sync submission did. Applied is false when the
// user holds no eligible participation; that case is a well-defined no-op,
// not an error.
type SyncOutcome struct {
	Applied      bool    `json:"applied"`
	RaceID       string  `json:"race_id,omitempty"`
	GainedKm     float64 `json:"gained_km"`
	TotalKm      float64 `json:"total_km"`
	DaysAccepted int     `json:"days_accepted"`
	DaysSkipped  int     `json:"days_skipped"`
	Completed    bool    `json:"completed"`
	XPGained     int64   `json:"xp_gained"`
	Level        int     `json:"level"`
}

// eligibleParticipation picks the participation a sync applies to: among
// the user's non-withdrawn participations in races whose window contains
// now, the one with the latest join time.
func eligibleParticipation(tx *gorm.DB, userID string, now time.Time) (*models.Participant, error) {
	var p models.Participant
	err := tx.Preload("Entries").
		Joins("join races on races.id = participants.race_id").
		Where("participants.user_id = ? AND participants.status <> ?", userID, models.StatusWithdrawn).
		Where("races.start_time <= ? AND races.end_time >= ?", now, now).
		Order("participants.joined_at desc").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ApplySyncBatch merges a batch of daily distance samples into the user's
// eligible participation, updates the user's lifetime progression, and
// re-runs finish arbitration for the affected race. The whole application
// is one transaction, so concurrent syncs against the same race serialize
// as atomic read-modify-write cycles. Reapplying an identical batch yields
// a zero gain, which makes caller-side retries safe.
func ApplySyncBatch(db *gorm.DB, userID string, samples []race.Sample, window time.Duration, now time.Time) (*SyncOutcome, error) {
	if len(samples) < race.MinBatchSize || len(samples) > race.MaxBatchSize {
		return nil, ErrBatchSize
	}

	outcome := &SyncOutcome{}
	err := db.Transaction(func(tx *gorm.DB) error {
		participant, err := eligibleParticipation(tx, userID, now)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // no eligible race: report "not applied"
			}
			return err
		}

		var raceRec models.Race
		if err := tx.Where("id = ?", participant.RaceID).First(&raceRec).Error; err != nil {
			return err
		}

		merge := race.MergeSamples(participant, samples, race.Distance(&raceRec), now)
		outcome.Applied = true
		outcome.RaceID = raceRec.ID
		outcome.GainedKm = merge.GainedKm
		outcome.TotalKm = merge.TotalKm
		outcome.DaysAccepted = merge.DaysAccepted
		outcome.DaysSkipped = merge.DaysSkipped
		outcome.Completed = merge.Completed

		for i := range participant.Entries {
			if err := tx.Save(&participant.Entries[i]).Error; err != nil {
				return err
			}
		}
		updates := map[string]interface{}{
			"total_distance_km": participant.TotalDistanceKm,
			"status":            participant.Status,
			"completed_at":      participant.CompletedAt,
		}
		if err := tx.Model(&models.Participant{}).
			Where("id = ?", participant.ID).Updates(updates).Error; err != nil {
			return err
		}

		// Lifetime progression. A zero-gain retry still stamps the sync
		// time so the user does not look like they never synced.
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		syncedAt := now
		user.LastSyncedAt = &syncedAt
		if merge.GainedKm > 0 {
			outcome.XPGained = progression.XPForDistance(merge.GainedKm)
			user.LifetimeDistanceKm += merge.GainedKm
			user.TotalXP += outcome.XPGained
			user.Level = progression.LevelFromXP(user.TotalXP)
		}
		outcome.Level = user.Level
		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		return reconcileFinish(tx, &raceRec, window, now)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// reconcileFinish recomputes the race's finish resolution from current
// participant data and persists it only when it changed.
func reconcileFinish(tx *gorm.DB, raceRec *models.Race, window time.Duration, now time.Time) error {
	var participants []models.Participant
	if err := tx.Where("race_id = ?", raceRec.ID).Find(&participants).Error; err != nil {
		return err
	}

	next, changed := race.ReconcileFinish(raceRec.Finish, participants, now, window)
	if !changed {
		return nil
	}

	err := tx.Model(&models.Race{}).Where("id = ?", raceRec.ID).
		Updates(map[string]interface{}{
			"finish_provisional_winner_id": next.ProvisionalWinnerID,
			"finish_provisional_at":        next.ProvisionalAt,
			"finish_window_ends_at":        next.WindowEndsAt,
			"finish_final_winner_id":       next.FinalWinnerID,
			"finish_finalized_at":          next.FinalizedAt,
		}).Error
	if err != nil {
		return err
	}
	raceRec.Finish = next
	zap.S().Debugf("race %s finish resolution now %s", raceRec.ID, race.StatusOf(next))
	return nil
}

// ObserveRace loads a race and lazily re-runs finish arbitration, the way
// every read of completion state must. There is no background timer: a
// provisional result finalizes whenever the race is next observed after
// its confirmation window.
func ObserveRace(db *gorm.DB, raceID string, window time.Duration, now time.Time) (*models.Race, error) {
	var raceRec *models.Race
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		raceRec, err = GetRace(tx, raceID)
		if err != nil {
			return err
		}
		return reconcileFinish(tx, raceRec, window, now)
	})
	if err != nil {
		return nil, err
	}
	return raceRec, nil
}

// ObserveAllRaces runs lazy arbitration over every race and returns them,
// for global aggregation paths that must see authoritative win state.
func ObserveAllRaces(db *gorm.DB, window time.Duration, now time.Time) ([]models.Race, error) {
	var races []models.Race
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		races, err = GetAllRaces(tx)
		if err != nil {
			return err
		}
		for i := range races {
			if err := reconcileFinish(tx, &races[i], window, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return races, nil
}
