package database

import (
	"errors"
	"time"

	"github.com/georace/georace/internal/database/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAlreadyJoined       = errors.New("already joined this race")
	ErrActiveParticipation = errors.New("user already has an active race participation")
	ErrNotParticipant      = errors.New("user is not a participant of this race")
)

// User CRUD
func CreateUser(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}

func GetUserByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func UpdateUser(db *gorm.DB, user *models.User) error {
	return db.Save(user).Error
}

// Race CRUD
func CreateRace(db *gorm.DB, race *models.Race) error {
	return db.Create(race).Error
}

func GetRace(db *gorm.DB, id string) (*models.Race, error) {
	var race models.Race
	err := db.Preload("Participants.User").Preload("Participants.Entries").
		Where("id = ?", id).First(&race).Error
	if err != nil {
		return nil, err
	}
	return &race, nil
}

func GetAllRaces(db *gorm.DB) ([]models.Race, error) {
	var races []models.Race
	err := db.Preload("Participants.User").
		Order("start_time desc").Find(&races).Error
	if err != nil {
		return nil, err
	}
	return races, nil
}

// Participants

// HasActiveParticipation reports whether the user already holds a
// non-withdrawn participation in a race whose window contains now. This is
// the global uniqueness invariant: one active race per user at a time.
func HasActiveParticipation(db *gorm.DB, userID string, now time.Time) (bool, error) {
	var count int64
	err := db.Model(&models.Participant{}).
		Joins("join races on races.id = participants.race_id").
		Where("participants.user_id = ? AND participants.status <> ?", userID, models.StatusWithdrawn).
		Where("races.start_time <= ? AND races.end_time >= ?", now, now).
		Count(&count).Error
	return count > 0, err
}

// JoinRace adds the user to a race after checking the single-active-race
// invariant and that the user is not already a participant.
func JoinRace(db *gorm.DB, raceID, userID string, now time.Time) (*models.Participant, error) {
	var participant *models.Participant
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Participant{}).
			Where("race_id = ? AND user_id = ?", raceID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyJoined
		}

		active, err := HasActiveParticipation(tx, userID, now)
		if err != nil {
			return err
		}
		if active {
			return ErrActiveParticipation
		}

		participant = &models.Participant{
			ID:       uuid.NewString(),
			RaceID:   raceID,
			UserID:   userID,
			JoinedAt: now,
			Status:   models.StatusActive,
		}
		return tx.Create(participant).Error
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

// WithdrawParticipant marks the user's participation in a race as
// withdrawn. Daily history is kept.
func WithdrawParticipant(db *gorm.DB, raceID, userID string) error {
	result := db.Model(&models.Participant{}).
		Where("race_id = ? AND user_id = ? AND status <> ?", raceID, userID, models.StatusWithdrawn).
		Update("status", models.StatusWithdrawn)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotParticipant
	}
	return nil
}
