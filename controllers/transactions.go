package controllers

import (
	"errors"
	"net/http"

	"github.com/bingoroom/bingo-backend/config"
	"github.com/bingoroom/bingo-backend/game"
	"github.com/bingoroom/bingo-backend/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type walletRequest struct {
	UserID uint    `json:"user_id" binding:"required"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// Deposit credits a user's wallet. Proof-of-payment review happens outside
// this service; by the time this is called the deposit is approved.
func Deposit(c *gin.Context) {
	var req walletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tx models.Transaction
	txErr := config.DB.Transaction(func(db *gorm.DB) error {
		var user models.User
		if err := db.First(&user, req.UserID).Error; err != nil {
			return err
		}
		user.WalletBalance += req.Amount
		if err := db.Save(&user).Error; err != nil {
			return err
		}
		tx = models.Transaction{
			UserID:       req.UserID,
			Type:         models.DepositTransaction,
			Amount:       req.Amount,
			Status:       models.TxApproved,
			BalanceAfter: user.WalletBalance,
		}
		return db.Create(&tx).Error
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deposit"})
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// Withdraw debits a user's wallet.
func Withdraw(c *gin.Context) {
	var req walletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tx models.Transaction
	txErr := config.DB.Transaction(func(db *gorm.DB) error {
		var user models.User
		if err := db.First(&user, req.UserID).Error; err != nil {
			return err
		}

		// Guard in the UPDATE so concurrent debits cannot both pass a
		// stale balance read.
		res := db.Model(&models.User{}).
			Where("id = ? AND wallet_balance >= ?", req.UserID, req.Amount).
			Update("wallet_balance", gorm.Expr("wallet_balance - ?", req.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return game.ErrInsufficientFunds
		}
		if err := db.First(&user, req.UserID).Error; err != nil {
			return err
		}
		tx = models.Transaction{
			UserID:       req.UserID,
			Type:         models.WithdrawTransaction,
			Amount:       req.Amount,
			Status:       models.TxApproved,
			BalanceAfter: user.WalletBalance,
		}
		return db.Create(&tx).Error
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		respondError(c, txErr)
		return
	}

	c.JSON(http.StatusCreated, tx)
}
