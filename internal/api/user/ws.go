package user

import (
	"net/http"
	"time"

	"github.com/georace/georace/internal/auth"
	"github.com/georace/georace/internal/database"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleRaceWs streams live race updates (finish state and leaderboard)
// to a subscriber. Browsers cannot set headers on websocket upgrades, so
// the token travels as a query parameter.
func (h *Handler) handleRaceWs(c *gin.Context) {
	raceID := c.Param("id")
	tokenString := c.Query("token")

	if tokenString == "" {
		c.String(http.StatusUnauthorized, "token query parameter is required")
		return
	}
	if _, err := auth.ValidateJWT(tokenString, h.cfg.Auth.JWT.Secret); err != nil {
		c.String(http.StatusUnauthorized, "invalid token")
		return
	}

	// Observing the race here also runs lazy arbitration, so the first
	// published snapshot is authoritative.
	raceRec, err := database.ObserveRace(h.db, raceID, h.cfg.Race.ConfirmationWindow(), time.Now())
	if err != nil {
		c.String(http.StatusNotFound, "race not found")
		return
	}
	h.publishRaceUpdate(raceRec)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Errorf("failed to upgrade websocket for race %s: %v", raceID, err)
		return
	}
	defer conn.Close()

	msgCh, unsubscribe := h.broker.Subscribe(raceID)
	defer unsubscribe()

	// Drain client reads so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
