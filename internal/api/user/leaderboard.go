package user

import (
	"net/http"
	"time"

	"github.com/georace/georace/internal/database"
	"github.com/georace/georace/internal/race"
	"github.com/georace/georace/internal/util"
	"github.com/gin-gonic/gin"
)

// getGlobalLeaderboard aggregates every user's distance, participations and
// finalized wins across all races. Arbitration is re-run first so that win
// counts reflect confirmation windows that elapsed since the last read.
func (h *Handler) getGlobalLeaderboard(c *gin.Context) {
	races, err := database.ObserveAllRaces(h.db, h.cfg.Race.ConfirmationWindow(), time.Now())
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, race.GlobalLeaderboard(races), "Global leaderboard retrieved")
}

func (h *Handler) getUserStats(c *gin.Context) {
	userID := c.Param("id")
	if _, err := database.GetUserByID(h.db, userID); err != nil {
		util.Error(c, http.StatusNotFound, "user not found")
		return
	}

	races, err := database.ObserveAllRaces(h.db, h.cfg.Race.ConfirmationWindow(), time.Now())
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, race.StatsForUser(races, userID), "User stats retrieved")
}
