package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bingoroom/bingo-backend/game"
	"github.com/bingoroom/bingo-backend/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the engine's persistence boundary. The gorm implementation backs
// production; tests substitute an in-memory fake.
type Store interface {
	GetRound(roundID uint) (*models.Round, error)
	GetCard(userID, roundID uint) (*models.Card, error)
	SaveDrawnNumbers(roundID uint, sequence []string) error

	// FinalizeCard writes the card's cells exactly once: the update is
	// conditional on the card not being finalized yet, so of two concurrent
	// finalizes only the first lands. Returns game.ErrCardAlreadyFinal when
	// the card was already populated.
	FinalizeCard(cardID uint, cells []string) error

	// RecordWinner atomically records the first winner: sets the round's
	// winner reference only if it is still unset, deactivates the round,
	// flags the card, and creates the pending claim and win transaction in
	// one database transaction. Returns game.ErrRoundAlreadyWon if another
	// claim got there first.
	RecordWinner(round *models.Round, card *models.Card, claim *models.Claim) error

	// CreateClaim persists a rejected claim for audit.
	CreateClaim(claim *models.Claim) error

	// RetireRound deactivates a finished round so the scheduler sweep stops
	// picking it up.
	RetireRound(roundID uint) error

	// ListDrawable returns ids of active rounds whose play time has passed
	// and which have no recorded winner yet.
	ListDrawable(now time.Time) ([]uint, error)
}

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) GetRound(roundID uint) (*models.Round, error) {
	var round models.Round
	if err := s.DB.First(&round, roundID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}

func (s *GormStore) GetCard(userID, roundID uint) (*models.Card, error) {
	var card models.Card
	err := s.DB.Where("user_id = ? AND round_id = ?", userID, roundID).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrNoCardFound
		}
		return nil, err
	}
	return &card, nil
}

func (s *GormStore) SaveDrawnNumbers(roundID uint, sequence []string) error {
	b, err := json.Marshal(sequence)
	if err != nil {
		return err
	}
	return s.DB.Model(&models.Round{}).Where("id = ?", roundID).
		Update("numbers_json", datatypes.JSON(b)).Error
}

func (s *GormStore) FinalizeCard(cardID uint, cells []string) error {
	b, err := json.Marshal(cells)
	if err != nil {
		return err
	}
	// Conditional update so two concurrent finalizes cannot both write.
	res := s.DB.Model(&models.Card{}).
		Where("id = ? AND finalized = ?", cardID, false).
		Updates(map[string]any{
			"cells_json": datatypes.JSON(b),
			"finalized":  true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrCardAlreadyFinal
	}
	return nil
}

func (s *GormStore) RecordWinner(round *models.Round, card *models.Card, claim *models.Claim) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		// Conditional update is the serialization backstop: only the first
		// writer finds winner_user_id still NULL.
		res := tx.Model(&models.Round{}).
			Where("id = ? AND winner_user_id IS NULL", round.ID).
			Updates(map[string]any{
				"winner_user_id": card.UserID,
				"is_active":      false,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return game.ErrRoundAlreadyWon
		}

		if err := tx.Model(&models.Card{}).Where("id = ?", card.ID).Updates(map[string]any{
			"is_winner":    true,
			"claim_status": models.ClaimPending,
			"win_amount":   claim.PrizeAmount,
		}).Error; err != nil {
			return err
		}

		if err := tx.Create(claim).Error; err != nil {
			return err
		}

		winTx := models.Transaction{
			UserID:  card.UserID,
			RoundID: &round.ID,
			Type:    models.WinTransaction,
			Amount:  claim.PrizeAmount,
			Status:  models.TxPending,
		}
		return tx.Create(&winTx).Error
	})
}

func (s *GormStore) CreateClaim(claim *models.Claim) error {
	return s.DB.Create(claim).Error
}

func (s *GormStore) RetireRound(roundID uint) error {
	return s.DB.Model(&models.Round{}).Where("id = ?", roundID).
		Update("is_active", false).Error
}

func (s *GormStore) ListDrawable(now time.Time) ([]uint, error) {
	var ids []uint
	err := s.DB.Model(&models.Round{}).
		Where("is_active = ? AND winner_user_id IS NULL AND play_time <= ?", true, now).
		Pluck("id", &ids).Error
	return ids, err
}

// DecodeSequence unpacks a round's persisted drawn-number JSON column.
func DecodeSequence(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var seq []string
	if err := json.Unmarshal(raw, &seq); err != nil {
		return nil
	}
	return seq
}
