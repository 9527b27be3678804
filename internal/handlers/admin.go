// internal/handlers/admin.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/daviddelgadop/greencart-backend/internal/services"
	"github.com/daviddelgadop/greencart-backend/internal/utils"
)

type AdminHandler struct {
	orderService  *services.OrderService
	impactService *services.ImpactService
}

func NewAdminHandler(orderService *services.OrderService, impactService *services.ImpactService) *AdminHandler {
	return &AdminHandler{orderService: orderService, impactService: impactService}
}

// POST /admin/orders/:id/recompute
func (h *AdminHandler) RecomputeOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	order, err := h.orderService.RecomputeOrder(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.NotFoundResponse(c, "Order")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"order": order})
}

// POST /admin/orders/recompute-zero-impact
func (h *AdminHandler) RecomputeZeroImpactOrders(c *gin.Context) {
	fixed, err := h.orderService.RecomputeZeroImpactOrders()
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"recomputed": fixed})
}

// POST /admin/bundles/:id/recompute-impact
func (h *AdminHandler) RecomputeBundleImpact(c *gin.Context) {
	bundleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid bundle ID", nil)
		return
	}

	bundle, err := h.impactService.RecomputeBundleImpact(bundleID)
	if err != nil {
		if errors.Is(err, services.ErrBundleNotFound) {
			utils.NotFoundResponse(c, "Bundle")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"bundle": bundle})
}
