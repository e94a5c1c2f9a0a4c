package services

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bingoroom/bingo-backend/utils/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketHandler returns the gin handler that joins a session to a round's
// channel. The session gets the full snapshot immediately, then ordered draw
// events until it disconnects.
func WebSocketHandler(engine *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		roundID64, err := strconv.ParseUint(c.Param("round_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round id"})
			return
		}
		roundID := uint(roundID64)

		userID64, err := strconv.ParseUint(c.Query("user"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid user query param"})
			return
		}

		snap, err := engine.Snapshot(roundID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("[WS] upgrade error: %v", err)
			return
		}

		session := NewSession(uuid.NewString(), uint(userID64), roundID, conn, engine)
		go session.writePump()
		go session.readPump()

		payload, _ := json.Marshal(snap)
		engine.Registry().Join(session, roundID, payload)
		logger.Infof("[WS] session %s joined round %d (user %d)", session.ID, roundID, userID64)
	}
}
