// internal/handlers/order.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/daviddelgadop/greencart-backend/internal/models"
	"github.com/daviddelgadop/greencart-backend/internal/services"
	"github.com/daviddelgadop/greencart-backend/internal/utils"
)

type OrderHandler struct {
	checkoutService *services.CheckoutService
	orderService    *services.OrderService
}

func NewOrderHandler(checkoutService *services.CheckoutService, orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		checkoutService: checkoutService,
		orderService:    orderService,
	}
}

// POST /orders
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	order, err := h.checkoutService.Checkout(userID, &req)
	if err != nil {
		var conflict *services.StockConflictError
		switch {
		case errors.As(err, &conflict):
			utils.ConflictResponse(c, conflict.Detail, gin.H{
				"detail":   conflict.Detail,
				"bundles":  conflict.Bundles,
				"products": conflict.Products,
			})
		case errors.Is(err, services.ErrBundleNotFound),
			errors.Is(err, services.ErrAddressNotFound),
			errors.Is(err, services.ErrPaymentNotFound):
			utils.NotFoundResponse(c, "Resource")
		case errors.Is(err, services.ErrBundleNotAvailable),
			errors.Is(err, services.ErrEmptyCheckout),
			errors.Is(err, services.ErrInvalidQuantity):
			utils.BadRequestResponse(c, err.Error(), nil)
		case services.IsRetryableError(err):
			utils.ServiceUnavailableResponse(c, "")
		default:
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"order": order,
	})
}

// GET /orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.orderService.ListOrders(scopedUserID(c, userID), params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	order, err := h.orderService.GetOrder(scopedUserID(c, userID), orderID)
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

// POST /orders/:id/rating
func (h *OrderHandler) RateOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	var req services.RateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.orderService.RateOrder(userID, orderID, &req)
	if err != nil {
		respondRatingError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"order": order})
}

// POST /orders/:id/items/:item_id/rating
func (h *OrderHandler) RateOrderItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order item ID", nil)
		return
	}

	var req services.RateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	item, err := h.orderService.RateOrderItem(userID, orderID, itemID, &req)
	if err != nil {
		respondRatingError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"item": item})
}

func respondRatingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound), errors.Is(err, services.ErrOrderItemNotFound):
		utils.NotFoundResponse(c, "Order")
	case errors.Is(err, services.ErrOrderNotDelivered):
		utils.UnprocessableResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrAlreadyRated):
		utils.ConflictResponse(c, err.Error(), nil)
	default:
		if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
			utils.ValidationErrorResponse(c, validationErrors)
			return
		}
		utils.InternalErrorResponse(c, "")
	}
}

// scopedUserID widens read queries for admins: uuid.Nil tells the order
// service to skip the owner filter.
func scopedUserID(c *gin.Context, userID uuid.UUID) uuid.UUID {
	if userType, ok := utils.GetUserTypeFromContext(c); ok && userType == string(models.UserTypeAdmin) {
		return uuid.Nil
	}
	return userID
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}
	return userID, true
}
