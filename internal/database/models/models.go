package models

import (
	"time"

	"gorm.io/gorm"
)

type ParticipantStatus string

const (
	StatusActive    ParticipantStatus = "active"
	StatusCompleted ParticipantStatus = "completed"
	StatusWithdrawn ParticipantStatus = "withdrawn"
)

type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Username     string `gorm:"uniqueIndex" json:"username"`
	PasswordHash string `json:"-"`
	Nickname     string `json:"nickname"`

	// Lifetime progression, mutated only by distance reconciliation.
	LifetimeDistanceKm float64    `json:"lifetime_distance_km"`
	TotalXP            int64      `json:"total_xp"`
	Level              int        `json:"level"`
	LastSyncedAt       *time.Time `json:"last_synced_at"`
}

// FinishResolution caches the last known arbitration outcome for a race.
// It is recomputed on every observation of completion data and persisted
// only when the recomputed value differs.
type FinishResolution struct {
	ProvisionalWinnerID string     `json:"provisional_winner_id"`
	ProvisionalAt       *time.Time `json:"provisional_at"`
	WindowEndsAt        *time.Time `json:"window_ends_at"`
	FinalWinnerID       string     `json:"final_winner_id"`
	FinalizedAt         *time.Time `json:"finalized_at"`
}

type Race struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name      string    `json:"name"`
	CreatorID string    `gorm:"index" json:"creator_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	StartLat float64 `json:"start_lat"`
	StartLng float64 `json:"start_lng"`
	EndLat   float64 `json:"end_lat"`
	EndLng   float64 `json:"end_lng"`

	Finish FinishResolution `gorm:"embedded;embeddedPrefix:finish_" json:"finish"`

	Participants []Participant `gorm:"foreignKey:RaceID;constraint:OnDelete:CASCADE" json:"participants"`
}

type Participant struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	RaceID string `gorm:"uniqueIndex:idx_race_user" json:"race_id"`
	UserID string `gorm:"uniqueIndex:idx_race_user" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user"`

	JoinedAt    time.Time         `json:"joined_at"`
	Status      ParticipantStatus `gorm:"index" json:"status"`
	CompletedAt *time.Time        `json:"completed_at"`

	// Always recomputed as the sum of Entries, never trusted incrementally.
	TotalDistanceKm float64 `json:"total_distance_km"`

	Entries []DailyDistance `gorm:"foreignKey:ParticipantID;constraint:OnDelete:CASCADE" json:"entries"`
}

// DailyDistance holds one participant's distance for one UTC calendar day.
// The value for a day only ever increases across syncs.
type DailyDistance struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ParticipantID string  `gorm:"uniqueIndex:idx_participant_day" json:"participant_id"`
	Day           string  `gorm:"uniqueIndex:idx_participant_day" json:"day"` // "2006-01-02", UTC
	DistanceKm    float64 `json:"distance_km"`
}
