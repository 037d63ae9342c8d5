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
	"go.uber.org/zap"
)

// submitSyncBatch ingests a batch of daily distance samples from the
// caller's device and applies them to their eligible race participation.
func (h *Handler) submitSyncBatch(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Samples []race.Sample `json:"samples" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	outcome, err := database.ApplySyncBatch(h.db, userID, req.Samples, h.cfg.Race.ConfirmationWindow(), time.Now())
	if err != nil {
		if errors.Is(err, database.ErrBatchSize) {
			util.Error(c, http.StatusBadRequest, err)
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	if !outcome.Applied {
		util.Success(c, outcome, "No eligible race participation, nothing applied")
		return
	}

	if outcome.GainedKm > 0 {
		zap.S().Infof("user %s synced %.3f km into race %s (total %.3f)",
			userID, outcome.GainedKm, outcome.RaceID, outcome.TotalKm)
	}

	raceRec, err := database.ObserveRace(h.db, outcome.RaceID, h.cfg.Race.ConfirmationWindow(), time.Now())
	if err == nil {
		h.publishRaceUpdate(raceRec)
	}

	util.Success(c, outcome, "Sync applied")
}

// publishRaceUpdate pushes the race's current finish state and leaderboard
// to websocket subscribers.
func (h *Handler) publishRaceUpdate(raceRec *models.Race) {
	h.broker.Publish(raceRec.ID, "race_update", gin.H{
		"finish_state": race.ProjectFinishState(raceRec.Finish, h.cfg.Race.ConfirmationWindow()),
		"leaderboard":  race.Leaderboard(raceRec),
	})
}
