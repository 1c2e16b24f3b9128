package controllers

import (
	"net/http"

	"hotelpro-backend/models"
	"hotelpro-backend/services"
	"hotelpro-backend/utils"

	"github.com/gin-gonic/gin"
)

// IdempotencyHeader makes order creation safe to retry.
const IdempotencyHeader = "Idempotency-Key"

type StatusInput struct {
	Status string `json:"status" binding:"required"`
}

type ReasonInput struct {
	Reason string `json:"reason"`
}

type OrderController struct {
	Orders   *services.OrderService
	Payments *services.PaymentService
}

// CreateOrder reserves stock for every line and optionally takes a payment.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var input services.CreateOrderInput
	if !bind(c, &input) {
		return
	}
	input.IdempotencyKey = c.GetHeader(IdempotencyHeader)

	order, err := oc.Orders.CreateOrder(c.Request.Context(), p.UserID, input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (oc *OrderController) GetOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := oc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) UpdateStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input StatusInput
	if !bind(c, &input) {
		return
	}

	order, err := oc.Orders.UpdateOrderStatus(c.Request.Context(), p.UserID, id, models.OrderStatus(input.Status))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) UpdateLineStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := uuidParam(c, "lineId")
	if !ok {
		return
	}
	var input StatusInput
	if !bind(c, &input) {
		return
	}

	order, err := oc.Orders.UpdateLineStatus(c.Request.Context(), p.UserID, id, lineID, models.LineStatus(input.Status))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) CancelOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input ReasonInput
	if c.Request.ContentLength > 0 && !bind(c, &input) {
		return
	}

	order, err := oc.Orders.CancelOrder(c.Request.Context(), p.UserID, id, input.Reason)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) RefundOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input ReasonInput
	if c.Request.ContentLength > 0 && !bind(c, &input) {
		return
	}

	order, err := oc.Orders.RecordRefund(c.Request.Context(), p.UserID, id, input.Reason)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) RecordPayment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input services.PaymentInput
	if !bind(c, &input) {
		return
	}

	order, err := oc.Payments.RecordPayment(c.Request.Context(), p.UserID, id, input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}
