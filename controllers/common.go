package controllers

import (
	"errors"
	"net/http"

	"github.com/bingoroom/bingo-backend/game"
	"github.com/bingoroom/bingo-backend/services"
	"github.com/gin-gonic/gin"
)

// Engine is wired in main before the router starts serving.
var Engine *services.Engine

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrRoundNotFound),
		errors.Is(err, game.ErrNoCardFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidCard),
		errors.Is(err, game.ErrInvalidSchedule),
		errors.Is(err, game.ErrNotAWinningCard),
		errors.Is(err, game.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrAlreadyRegistered),
		errors.Is(err, game.ErrAlreadyResolved),
		errors.Is(err, game.ErrRoundAlreadyWon),
		errors.Is(err, game.ErrCardAlreadyFinal),
		errors.Is(err, game.ErrSetupWindowElapsed),
		errors.Is(err, game.ErrRoundNotDrawing),
		errors.Is(err, game.ErrRegistrationClosed),
		errors.Is(err, game.ErrRegistrationNotOpen):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the structured rejection: message plus a stable reason
// code so clients can branch without parsing prose.
func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"error":  err.Error(),
		"reason": game.Reason(err),
	})
}
