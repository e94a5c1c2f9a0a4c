package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bingoroom/bingo-backend/config"
	"github.com/bingoroom/bingo-backend/game"
	"github.com/bingoroom/bingo-backend/models"
	"github.com/bingoroom/bingo-backend/utils/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type registerRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// RegisterForRound buys the ticket: deducts the price from the wallet,
// records the bet transaction and creates the user's empty card, all in one
// database transaction.
func RegisterForRound(c *gin.Context) {
	roundID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round id"})
		return
	}
	roundID := uint(roundID64)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var card models.Card
	txErr := config.DB.Transaction(func(tx *gorm.DB) error {
		var round models.Round
		if err := tx.First(&round, roundID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return game.ErrRoundNotFound
			}
			return err
		}
		if err := game.CheckRegistration(&round, time.Now()); err != nil {
			return err
		}

		var existing models.Card
		err := tx.Where("user_id = ? AND round_id = ?", req.UserID, roundID).First(&existing).Error
		if err == nil {
			return game.ErrAlreadyRegistered
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var user models.User
		if err := tx.First(&user, req.UserID).Error; err != nil {
			return err
		}

		// The balance guard lives in the UPDATE itself so two concurrent
		// debits cannot both pass a stale read.
		res := tx.Model(&models.User{}).
			Where("id = ? AND wallet_balance >= ?", req.UserID, round.TicketPrice).
			Update("wallet_balance", gorm.Expr("wallet_balance - ?", round.TicketPrice))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return game.ErrInsufficientFunds
		}
		if err := tx.First(&user, req.UserID).Error; err != nil {
			return err
		}

		bet := models.Transaction{
			UserID:       req.UserID,
			RoundID:      &roundID,
			Type:         models.BetTransaction,
			Amount:       round.TicketPrice,
			Status:       models.TxApproved,
			BalanceAfter: user.WalletBalance,
		}
		if err := tx.Create(&bet).Error; err != nil {
			return err
		}

		card = models.Card{UserID: req.UserID, RoundID: roundID}
		return tx.Create(&card).Error
	})
	if txErr != nil {
		respondError(c, txErr)
		return
	}

	logger.Infof("[Round %d] user %d registered (card %d)", roundID, req.UserID, card.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "registered, proceed to card setup in the lobby",
		"card_id": card.ID,
	})
}

// CheckRegistration reports whether a user already holds a card for a round,
// so a stale client can be redirected to the lobby instead of re-buying.
func CheckRegistration(c *gin.Context) {
	roundID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round id"})
		return
	}
	userID, err := strconv.ParseUint(c.Query("user"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid user query param"})
		return
	}

	var card models.Card
	dbErr := config.DB.Where("user_id = ? AND round_id = ?", userID, roundID).First(&card).Error
	if dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"registered": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true, "card_id": card.ID})
}
