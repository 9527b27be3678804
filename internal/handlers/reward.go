// internal/handlers/reward.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/daviddelgadop/greencart-backend/internal/services"
	"github.com/daviddelgadop/greencart-backend/internal/utils"
)

type RewardHandler struct {
	rewardService *services.RewardService
}

func NewRewardHandler(rewardService *services.RewardService) *RewardHandler {
	return &RewardHandler{rewardService: rewardService}
}

// GET /rewards/progress
func (h *RewardHandler) GetProgress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	progress, err := h.rewardService.GetProgress(userID)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"progress": progress})
}

// GET /rewards
func (h *RewardHandler) GetRewards(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	rewards, err := h.rewardService.ListRewards(userID)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"rewards": rewards})
}

// GET /rewards/tiers
// Public; when a valid token is presented the response also lists the tiers
// the caller has already reached.
func (h *RewardHandler) GetTiers(c *gin.Context) {
	tiers, err := h.rewardService.ListTiers()
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	payload := gin.H{"tiers": tiers}

	if userIDStr, ok := utils.GetUserIDFromContext(c); ok {
		if userID, err := uuid.Parse(userIDStr); err == nil {
			granted, err := h.rewardService.GrantedTierIDs(userID)
			if err != nil {
				utils.InternalErrorResponse(c, "")
				return
			}
			payload["granted_tier_ids"] = granted
		}
	}

	utils.SuccessResponse(c, payload)
}
