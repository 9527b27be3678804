// internal/models/reward.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RewardTier is an ordered set of thresholds over cumulative user metrics.
// A user earns the tier's reward once every threshold is met.
type RewardTier struct {
	BaseModel
	Code                  string        `json:"code" gorm:"size:50;uniqueIndex;not null"`
	Title                 string        `json:"title" gorm:"size:100;not null"`
	Description           string        `json:"description,omitempty" gorm:"type:text"`
	Icon                  string        `json:"icon,omitempty" gorm:"size:100"`
	MinOrders             int           `json:"min_orders" gorm:"default:0"`
	MinWasteKg            float64       `json:"min_waste_kg" gorm:"type:decimal(9,2);default:0"`
	MinCO2Kg              float64       `json:"min_co2_kg" gorm:"type:decimal(9,2);default:0"`
	MinProducersSupported int           `json:"min_producers_supported" gorm:"default:0"`
	MinSavingsEur         float64       `json:"min_savings_eur" gorm:"type:decimal(10,2);default:0"`
	BenefitKind           RewardBenefit `json:"benefit_kind" gorm:"type:varchar(20);default:'none'"`
	BenefitConfig         JSONB         `json:"benefit_config" gorm:"type:jsonb"`
	IsActive              bool          `json:"is_active" gorm:"default:true"`
}

// Reward is a grant record, unique per (user, tier).
type Reward struct {
	BaseModel
	UserID         uuid.UUID    `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_reward_user_tier"`
	TierID         *uuid.UUID   `json:"tier_id" gorm:"type:uuid;uniqueIndex:idx_reward_user_tier"`
	Title          string       `json:"title" gorm:"size:100;not null"`
	Description    string       `json:"description,omitempty" gorm:"type:text"`
	BenefitStatus  RewardStatus `json:"benefit_status" gorm:"type:varchar(20);default:'none'"`
	BenefitPayload JSONB        `json:"benefit_payload" gorm:"type:jsonb"`
	FulfilledAt    *time.Time   `json:"fulfilled_at,omitempty"`

	User User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Tier *RewardTier `json:"tier,omitempty" gorm:"foreignKey:TierID"`
}

// UserRewardProgress holds the monotonic per-user counter set. Counters only
// ever grow; seen_producer_ids is the union of every producer id the user has
// ever bought from.
type UserRewardProgress struct {
	BaseModel
	UserID             uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	TotalOrders        int            `json:"total_orders" gorm:"default:0"`
	TotalWasteKg       float64        `json:"total_waste_kg" gorm:"type:decimal(9,2);default:0"`
	TotalCO2Kg         float64        `json:"total_co2_kg" gorm:"type:decimal(9,2);default:0"`
	TotalSavingsEur    float64        `json:"total_savings_eur" gorm:"type:decimal(10,2);default:0"`
	ProducersSupported int            `json:"producers_supported" gorm:"default:0"`
	SeenProducerIDs    pq.StringArray `json:"seen_producer_ids" gorm:"type:text[]"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
