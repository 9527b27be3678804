// internal/services/reward_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/daviddelgadop/greencart-backend/internal/models"
	"github.com/daviddelgadop/greencart-backend/internal/utils"
)

// RewardService maintains the monotonic per-user progress counters and grants
// tier rewards once every threshold of a tier is met.
type RewardService struct {
	db *gorm.DB
}

func NewRewardService(db *gorm.DB) *RewardService {
	return &RewardService{db: db}
}

// ApplyOrder folds one committed order into the user's progress and grants
// any newly reached tiers. The progress row is locked for the duration so
// concurrent orders from the same user cannot lose updates. Re-applying the
// same order can overcount totals but can never duplicate a grant: the
// (user, tier) uniqueness constraint makes grants idempotent.
func (s *RewardService) ApplyOrder(order *models.Order) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		progress, err := s.lockProgress(tx, order.UserID)
		if err != nil {
			return err
		}

		progress.TotalOrders++
		progress.TotalWasteKg += order.TotalAvoidedWasteKg
		progress.TotalCO2Kg += order.TotalAvoidedCO2Kg
		progress.TotalSavingsEur += order.TotalSavings

		seen := make(map[string]bool, len(progress.SeenProducerIDs))
		for _, id := range progress.SeenProducerIDs {
			seen[id] = true
		}
		for i := range order.Items {
			for _, producerID := range s.producerIDsForItem(tx, &order.Items[i]) {
				key := producerID.String()
				if !seen[key] {
					seen[key] = true
					progress.SeenProducerIDs = append(progress.SeenProducerIDs, key)
				}
			}
		}
		progress.ProducersSupported = len(progress.SeenProducerIDs)

		if err := tx.Save(progress).Error; err != nil {
			return err
		}

		return s.grantReachedTiers(tx, order.UserID, progress)
	})
}

// lockProgress returns the user's progress row under FOR UPDATE, creating it
// first if the user has never ordered before.
func (s *RewardService) lockProgress(tx *gorm.DB, userID uuid.UUID) (*models.UserRewardProgress, error) {
	var progress models.UserRewardProgress

	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&progress).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := models.UserRewardProgress{UserID: userID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&fresh).Error; err != nil {
			return nil, err
		}

		// Re-read under the lock: another transaction may have won the
		// insert race.
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&progress).Error
	}

	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// producerIDsForItem resolves the distinct producers behind one order line,
// preferring the frozen snapshot and falling back to the live
// bundle → component → product → company → owner graph.
func (s *RewardService) producerIDsForItem(tx *gorm.DB, item *models.OrderItem) []uuid.UUID {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)

	add := func(id *uuid.UUID) {
		if id != nil && *id != uuid.Nil && !seen[*id] {
			seen[*id] = true
			ids = append(ids, *id)
		}
	}

	if item.BundleSnapshot != nil {
		for i := range item.BundleSnapshot.Components {
			add(item.BundleSnapshot.Components[i].ProducerID)
		}
		add(item.BundleSnapshot.ProducerID)
	}

	if len(ids) > 0 || item.BundleID == nil {
		return ids
	}

	var bundle models.Bundle
	err := tx.Preload("Components.Product.Company").
		First(&bundle, "id = ?", *item.BundleID).Error
	if err != nil {
		return ids
	}

	for i := range bundle.Components {
		ownerID := bundle.Components[i].Product.Company.OwnerID
		add(&ownerID)
	}
	return ids
}

func (s *RewardService) grantReachedTiers(tx *gorm.DB, userID uuid.UUID, progress *models.UserRewardProgress) error {
	var tiers []models.RewardTier
	if err := tx.Where("is_active = ?", true).Find(&tiers).Error; err != nil {
		return err
	}

	var grantedTierIDs []uuid.UUID
	if err := tx.Model(&models.Reward{}).
		Where("user_id = ? AND tier_id IS NOT NULL", userID).
		Pluck("tier_id", &grantedTierIDs).Error; err != nil {
		return err
	}
	granted := make(map[uuid.UUID]bool, len(grantedTierIDs))
	for _, id := range grantedTierIDs {
		granted[id] = true
	}

	for i := range tiers {
		tier := &tiers[i]
		if granted[tier.ID] || !TierReached(tier, progress) {
			continue
		}

		tierID := tier.ID
		reward := models.Reward{
			UserID:         userID,
			TierID:         &tierID,
			Title:          tier.Title,
			Description:    tier.Description,
			BenefitStatus:  models.RewardStatusPending,
			BenefitPayload: benefitPayload(tier),
		}

		// The (user, tier) uniqueness constraint makes a concurrent
		// duplicate grant a no-op.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "tier_id"}},
			DoNothing: true,
		}).Create(&reward).Error; err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"tier":    tier.Code,
		}).Info("Reward tier granted")
	}

	return nil
}

// TierReached reports whether every threshold of a tier is satisfied by the
// user's counters. All thresholds must hold, not any.
func TierReached(tier *models.RewardTier, progress *models.UserRewardProgress) bool {
	if progress.TotalOrders < tier.MinOrders {
		return false
	}
	if progress.TotalWasteKg < tier.MinWasteKg {
		return false
	}
	if progress.TotalCO2Kg < tier.MinCO2Kg {
		return false
	}
	if progress.ProducersSupported < tier.MinProducersSupported {
		return false
	}
	if progress.TotalSavingsEur < tier.MinSavingsEur {
		return false
	}
	return true
}

func benefitPayload(tier *models.RewardTier) models.JSONB {
	payload := models.JSONB{"kind": string(tier.BenefitKind)}

	switch tier.BenefitKind {
	case models.RewardBenefitCoupon:
		if code, err := utils.GenerateCouponCode(); err == nil {
			payload["code"] = code
		}
		for k, v := range tier.BenefitConfig {
			payload[k] = v
		}
	case models.RewardBenefitFreeShip:
		payload["free_shipping"] = true
	}

	return payload
}

// RewardProgressResponse is the read-only reward state exposed to clients.
type RewardProgressResponse struct {
	TotalOrders        int      `json:"total_orders"`
	TotalWasteKg       float64  `json:"total_waste_kg"`
	TotalCO2Kg         float64  `json:"total_co2_kg"`
	TotalSavingsEur    float64  `json:"total_savings_eur"`
	ProducersSupported int      `json:"producers_supported"`
	GrantedTitles      []string `json:"granted_titles"`
}

func (s *RewardService) GetProgress(userID uuid.UUID) (*RewardProgressResponse, error) {
	response := &RewardProgressResponse{GrantedTitles: []string{}}

	var progress models.UserRewardProgress
	err := s.db.Where("user_id = ?", userID).First(&progress).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		response.TotalOrders = progress.TotalOrders
		response.TotalWasteKg = progress.TotalWasteKg
		response.TotalCO2Kg = progress.TotalCO2Kg
		response.TotalSavingsEur = progress.TotalSavingsEur
		response.ProducersSupported = progress.ProducersSupported
	}

	var titles []string
	if err := s.db.Model(&models.Reward{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("title", &titles).Error; err != nil {
		return nil, err
	}
	response.GrantedTitles = append(response.GrantedTitles, titles...)

	return response, nil
}

func (s *RewardService) ListRewards(userID uuid.UUID) ([]models.Reward, error) {
	var rewards []models.Reward
	err := s.db.Preload("Tier").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rewards).Error
	return rewards, err
}

func (s *RewardService) ListTiers() ([]models.RewardTier, error) {
	var tiers []models.RewardTier
	err := s.db.Where("is_active = ?", true).
		Order("min_waste_kg ASC, min_producers_supported ASC").
		Find(&tiers).Error
	return tiers, err
}

// GrantedTierIDs returns the tier ids a user has already reached, for
// annotating the public tier catalog.
func (s *RewardService) GrantedTierIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	var tierIDs []uuid.UUID
	err := s.db.Model(&models.Reward{}).
		Where("user_id = ?", userID).
		Pluck("tier_id", &tierIDs).Error
	return tierIDs, err
}
