package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bingoroom/bingo-backend/config"
	"github.com/bingoroom/bingo-backend/game"
	"github.com/bingoroom/bingo-backend/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type finalizeCardRequest struct {
	UserID uint     `json:"user_id" binding:"required"`
	Cells  []string `json:"cells" binding:"required"`
}

// FinalizeCard persists the user's 25 cells once, inside the setup window.
// Invalid or duplicate cells are blanked rather than rejected; blanks never
// count toward a line. The engine's store write is populate-once, so a
// concurrent duplicate request cannot repopulate the card.
func FinalizeCard(c *gin.Context) {
	roundID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round id"})
		return
	}

	var req finalizeCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cardID, cells, err := Engine.FinalizeCard(req.UserID, uint(roundID64), req.Cells)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"card_id": cardID, "cells": cells})
}

// GenerateCard returns a random valid card layout for the setup screen.
func GenerateCard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cells": game.GenerateRandomCard()})
}

// GetCard returns the caller's card for a round.
func GetCard(c *gin.Context) {
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
			respondError(c, game.ErrNoCardFound)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, card)
}
