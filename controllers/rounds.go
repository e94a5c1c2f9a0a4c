package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bingoroom/bingo-backend/config"
	"github.com/bingoroom/bingo-backend/game"
	"github.com/bingoroom/bingo-backend/models"
	"github.com/bingoroom/bingo-backend/services"
	"github.com/bingoroom/bingo-backend/utils/logger"
	"github.com/gin-gonic/gin"
)

type createRoundRequest struct {
	Title             string    `json:"title" binding:"required"`
	RegistrationOpen  time.Time `json:"registration_open" binding:"required"`
	RegistrationClose time.Time `json:"registration_close" binding:"required"`
	PlayTime          time.Time `json:"play_time" binding:"required"`
	TicketPrice       float64   `json:"ticket_price"`
	PrizeAmount       float64   `json:"prize_amount"`
}

// CreateRound creates a new round in Registration state (admin action).
func CreateRound(c *gin.Context) {
	var req createRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	round := models.Round{
		Title:             req.Title,
		RegistrationOpen:  req.RegistrationOpen,
		RegistrationClose: req.RegistrationClose,
		PlayTime:          req.PlayTime,
		TicketPrice:       req.TicketPrice,
		PrizeAmount:       req.PrizeAmount,
		IsActive:          true,
	}
	if err := game.ValidateSchedule(&round); err != nil {
		respondError(c, err)
		return
	}

	if err := config.DB.Create(&round).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create round"})
		return
	}

	logger.Infof("[Round %d] created: %s (play %s)", round.ID, round.Title, round.PlayTime)
	c.JSON(http.StatusCreated, round)
}

// ListRounds returns all active rounds with participant counts.
func ListRounds(c *gin.Context) {
	var rounds []models.Round
	if err := config.DB.Where("is_active = ?", true).Order("created_at DESC").Find(&rounds).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rounds"})
		return
	}

	out := make([]gin.H, 0, len(rounds))
	now := time.Now()
	for i := range rounds {
		var participants int64
		config.DB.Model(&models.Card{}).Where("round_id = ?", rounds[i].ID).Count(&participants)
		out = append(out, gin.H{
			"round":             rounds[i],
			"state":             game.DeriveState(&rounds[i], len(services.DecodeSequence(rounds[i].NumbersJSON)), now),
			"participant_count": participants,
		})
	}
	c.JSON(http.StatusOK, out)
}

// RoundStatus returns the round's derived state, drawn sequence and
// participant list. This is the polling/catch-up view; the websocket channel
// is the primary ordered transport.
func RoundStatus(c *gin.Context) {
	roundID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round id"})
		return
	}

	snap, err := Engine.Snapshot(uint(roundID64))
	if err != nil {
		respondError(c, err)
		return
	}

	type participant struct {
		UserID   uint   `json:"user_id"`
		Username string `json:"username"`
		CardID   uint   `json:"card_id"`
		IsWinner bool   `json:"is_winner"`
	}
	var players []participant
	config.DB.Model(&models.Card{}).
		Select("cards.user_id, users.username, cards.id AS card_id, cards.is_winner").
		Joins("JOIN users ON users.id = cards.user_id").
		Where("cards.round_id = ?", roundID64).
		Scan(&players)

	c.JSON(http.StatusOK, gin.H{
		"round_id":       snap.RoundID,
		"state":          snap.State,
		"is_drawing":     snap.IsDrawing,
		"drawn_numbers":  snap.DrawnNumbers,
		"winner_user_id": snap.WinnerUserID,
		"players":        players,
	})
}
