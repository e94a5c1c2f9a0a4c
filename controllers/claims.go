package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bingoroom/bingo-backend/config"
	"github.com/bingoroom/bingo-backend/models"
	"github.com/bingoroom/bingo-backend/utils/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type submitClaimRequest struct {
	UserID  uint `json:"user_id" binding:"required"`
	RoundID uint `json:"round_id" binding:"required"`
}

// SubmitClaim is the HTTP claim path. The engine re-runs the authoritative
// pattern check; whatever the client's own check said is irrelevant here.
func SubmitClaim(c *gin.Context) {
	var req submitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := Engine.SubmitClaim(req.UserID, req.RoundID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "claim accepted, awaiting admin payout approval",
		"win_amount": amount,
	})
}

type resolveClaimRequest struct {
	Status models.TransactionStatus `json:"status" binding:"required"`
}

// ResolveClaim is the admin payout step: approving credits the prize to the
// winner's wallet; rejecting just closes the claim. Either way the card's
// claim status moves to resolved.
func ResolveClaim(c *gin.Context) {
	claimID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid claim id"})
		return
	}

	var req resolveClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != models.TxApproved && req.Status != models.TxRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be approved or rejected"})
		return
	}

	txErr := config.DB.Transaction(func(tx *gorm.DB) error {
		var claim models.Claim
		if err := tx.First(&claim, claimID).Error; err != nil {
			return err
		}
		if claim.Status != models.TxPending {
			return errors.New("claim already resolved")
		}

		claim.Status = req.Status
		if err := tx.Save(&claim).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Card{}).Where("id = ?", claim.CardID).
			Update("claim_status", models.ClaimResolved).Error; err != nil {
			return err
		}

		if req.Status == models.TxApproved {
			var user models.User
			if err := tx.First(&user, claim.UserID).Error; err != nil {
				return err
			}
			user.WalletBalance += claim.PrizeAmount
			if err := tx.Save(&user).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Transaction{}).
			Where("user_id = ? AND round_id = ? AND type = ?",
				claim.UserID, claim.RoundID, models.WinTransaction).
			Update("status", req.Status).Error
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "claim not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": txErr.Error()})
		return
	}

	logger.Infof("[Claim %d] resolved: %s", claimID, req.Status)
	c.JSON(http.StatusOK, gin.H{"claim_id": claimID, "status": req.Status})
}

// ListPendingClaims lists claims awaiting admin review.
func ListPendingClaims(c *gin.Context) {
	var claims []models.Claim
	if err := config.DB.Where("status = ? AND accepted = ?", models.TxPending, true).
		Order("submitted_at ASC").Find(&claims).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list claims"})
		return
	}
	c.JSON(http.StatusOK, claims)
}
