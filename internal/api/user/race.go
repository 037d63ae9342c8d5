package user

import (
	"errors"
	"net/http"
	"time"

	"github.com/georace/georace/internal/database"
	"github.com/georace/georace/internal/database/models"
	"github.com/georace/georace/internal/race"
	"github.com/georace/georace/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type createRaceRequest struct {
	Name      string    `json:"name" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	StartLat  float64   `json:"start_lat"`
	StartLng  float64   `json:"start_lng"`
	EndLat    float64   `json:"end_lat"`
	EndLng    float64   `json:"end_lng"`
}

func (h *Handler) createRace(c *gin.Context) {
	userID := c.GetString("userID")

	var req createRaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if !req.EndTime.After(req.StartTime) {
		util.Error(c, http.StatusBadRequest, "race end time must be after start time")
		return
	}
	if req.StartLat < -90 || req.StartLat > 90 || req.EndLat < -90 || req.EndLat > 90 ||
		req.StartLng < -180 || req.StartLng > 180 || req.EndLng < -180 || req.EndLng > 180 {
		util.Error(c, http.StatusBadRequest, "coordinates out of range")
		return
	}

	newRace := models.Race{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatorID: userID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		StartLat:  req.StartLat,
		StartLng:  req.StartLng,
		EndLat:    req.EndLat,
		EndLng:    req.EndLng,
	}
	if err := database.CreateRace(h.db, &newRace); err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}

	zap.S().Infof("race %s created by %s (%.2f km)", newRace.ID, userID, race.Distance(&newRace))
	util.Success(c, gin.H{
		"race":        newRace,
		"distance_km": race.Distance(&newRace),
	}, "Race created")
}

func (h *Handler) getAllRaces(c *gin.Context) {
	races, err := database.ObserveAllRaces(h.db, h.cfg.Race.ConfirmationWindow(), time.Now())
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}

	type raceSummary struct {
		models.Race
		DistanceKm   float64          `json:"distance_km"`
		FinishState  race.FinishState `json:"finish_state"`
		Participants int              `json:"participant_count"`
	}
	summaries := make([]raceSummary, 0, len(races))
	for i := range races {
		r := races[i]
		summary := raceSummary{
			Race:         r,
			DistanceKm:   race.Distance(&r),
			FinishState:  race.ProjectFinishState(r.Finish, h.cfg.Race.ConfirmationWindow()),
			Participants: len(r.Participants),
		}
		summary.Race.Participants = nil // list view stays light
		summaries = append(summaries, summary)
	}

	util.Success(c, summaries, "Races loaded")
}

func (h *Handler) getRace(c *gin.Context) {
	raceID := c.Param("id")
	raceRec, err := database.ObserveRace(h.db, raceID, h.cfg.Race.ConfirmationWindow(), time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "race not found")
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	util.Success(c, gin.H{
		"race":         raceRec,
		"distance_km":  race.Distance(raceRec),
		"finish_state": race.ProjectFinishState(raceRec.Finish, h.cfg.Race.ConfirmationWindow()),
		"leaderboard":  race.Leaderboard(raceRec),
	}, "Race found")
}

func (h *Handler) getRaceLeaderboard(c *gin.Context) {
	raceID := c.Param("id")
	raceRec, err := database.ObserveRace(h.db, raceID, h.cfg.Race.ConfirmationWindow(), time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "race not found")
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	util.Success(c, race.Leaderboard(raceRec), "Leaderboard retrieved")
}

func (h *Handler) getRaceFinishState(c *gin.Context) {
	raceID := c.Param("id")
	raceRec, err := database.ObserveRace(h.db, raceID, h.cfg.Race.ConfirmationWindow(), time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "race not found")
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	util.Success(c, race.ProjectFinishState(raceRec.Finish, h.cfg.Race.ConfirmationWindow()), "Finish state retrieved")
}

func (h *Handler) joinRace(c *gin.Context) {
	userID := c.GetString("userID")
	raceID := c.Param("id")
	now := time.Now()

	raceRec, err := database.GetRace(h.db, raceID)
	if err != nil {
		util.Error(c, http.StatusNotFound, "race not found")
		return
	}
	if now.After(raceRec.EndTime) {
		util.Error(c, http.StatusForbidden, "race has ended, cannot join")
		return
	}

	participant, err := database.JoinRace(h.db, raceID, userID, now)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrAlreadyJoined):
			util.Error(c, http.StatusConflict, err)
		case errors.Is(err, database.ErrActiveParticipation):
			util.Error(c, http.StatusConflict, err)
		default:
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	util.Success(c, participant, "Joined race")
}

func (h *Handler) withdrawFromRace(c *gin.Context) {
	userID := c.GetString("userID")
	raceID := c.Param("id")

	if err := database.WithdrawParticipant(h.db, raceID, userID); err != nil {
		if errors.Is(err, database.ErrNotParticipant) {
			util.Error(c, http.StatusNotFound, err)
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	// A withdrawal can change the earliest finisher, so arbitration has to
	// run before anyone reads the race again.
	raceRec, err := database.ObserveRace(h.db, raceID, h.cfg.Race.ConfirmationWindow(), time.Now())
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	h.publishRaceUpdate(raceRec)

	util.Success(c, nil, "Withdrawn from race")
}
