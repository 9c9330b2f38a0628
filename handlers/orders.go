package handlers

import (
	"errors"
	"net/http"

	"vehicle-rental-api/middleware"
	"vehicle-rental-api/models"
	"vehicle-rental-api/notify"
	"vehicle-rental-api/reconcile"
	"vehicle-rental-api/service"
	"vehicle-rental-api/statemachine"

	"github.com/gin-gonic/gin"
)

// AdminGetOrders returns the merged reservation list — admin only.
// ?view=history switches to the cancelled/rejected archive; ?status filters
// by canonical status.
func AdminGetOrders(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			orders []models.Order
			err    error
		)
		if c.Query("view") == "history" {
			orders, err = svc.FetchHistory(c.Request.Context())
		} else {
			orders, err = svc.FetchOrders(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
			return
		}

		if status := c.Query("status"); status != "" {
			want := models.CanonicalStatus(status)
			filtered := orders[:0]
			for _, o := range orders {
				if o.Status == want {
					filtered = append(filtered, o)
				}
			}
			orders = filtered
		}

		c.JSON(http.StatusOK, gin.H{
			"count":  len(orders),
			"orders": orders,
		})
	}
}

// AdminGetOrderStats returns the dashboard summary over the full merged set,
// including the count of invalid records awaiting cleanup — admin only
func AdminGetOrderStats(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.GlobalStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"stats": stats})
	}
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// AdminUpdateOrderStatus validates or rejects a reservation — admin only.
// A failed update leaves the order untouched; the refreshed merged list is
// returned so dependent views reflect the change.
func AdminUpdateOrderStatus(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("id")
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := svc.SetStatus(c.Request.Context(), orderID, req.Status); err != nil {
			switch {
			case errors.Is(err, service.ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			default:
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error":     "Status update failed",
					"requested": req.Status,
					"reason":    err.Error(),
				})
			}
			return
		}

		orders, err := svc.FetchOrders(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order_id": orderID})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":  "Order status updated",
			"order_id": orderID,
			"status":   req.Status,
			"orders":   orders,
		})
	}
}

// AdminDeleteOrder removes a reservation — admin only. Local queue entries
// are removed for good; upstream orders are cancelled and remain in history.
func AdminDeleteOrder(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("id")
		if err := svc.DeleteOrder(c.Request.Context(), orderID); err != nil {
			if errors.Is(err, service.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order deleted", "order_id": orderID})
	}
}

// AdminCleanInvalidOrders drops every local queue record that does not
// normalize to a valid reservation — admin only
func AdminCleanInvalidOrders(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		removed, err := svc.CleanInvalid(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Invalid orders cleaned",
			"removed": removed,
		})
	}
}

// AdminSendPaymentReminder triggers a payment reminder email — admin only
func AdminSendPaymentReminder(mailer notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mailer.PaymentReminder(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send payment reminder"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment reminder sent"})
	}
}

// AdminSendRentalSummary triggers the rental recap email — admin only
func AdminSendRentalSummary(mailer notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mailer.RentalSummary(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send rental summary"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Rental summary sent"})
	}
}

// CreateOrder places a reservation (customer only). When the upstream order
// store is unreachable the order is queued locally and synced by a later
// reconciliation pass.
func CreateOrder(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var raw reconcile.RawOrder
		if err := c.ShouldBindJSON(&raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order payload"})
			return
		}
		if raw == nil {
			raw = reconcile.RawOrder{}
		}
		raw["userId"] = middleware.GetUserID(c)
		if raw.Str("userEmail") == "" {
			raw["userEmail"] = middleware.GetEmail(c)
		}

		order, queued, err := svc.CreateOrder(c.Request.Context(), raw)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "Order created",
			"order":   order,
			"queued":  queued,
		})
	}
}

// GetMyOrders returns the authenticated customer's reservations, merged
// across the upstream store and the local queue
func GetMyOrders(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := svc.FetchOrdersForUser(c.Request.Context(), middleware.GetEmail(c), middleware.GetUserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count":  len(orders),
			"orders": orders,
		})
	}
}

// GetStateMachineInfo returns the order lifecycle for informational purposes
func GetStateMachineInfo(c *gin.Context) {
	var info []gin.H
	for _, t := range statemachine.GetAllTransitions() {
		info = append(info, gin.H{"from": t.From, "to": t.To, "actor": t.Actor})
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   info,
		"terminal_states": []string{string(models.StatusValidated), string(models.StatusRejected), string(models.StatusCancelled)},
		"description":     "Vehicle Rental Reservation Lifecycle State Machine",
	})
}
