package controllers

import (
	"context"
	"net/http"

	"hotelpro-backend/models"
	"hotelpro-backend/services"
	"hotelpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransferController struct {
	Transfers *services.TransferService
}

type requestFunc func(ctx context.Context, p services.Principal, in services.TransferInput) (*models.DepartmentTransfer, error)

func (tc *TransferController) request(c *gin.Context, fn requestFunc) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var input services.TransferInput
	if !bind(c, &input) {
		return
	}
	transfer, err := fn(c.Request.Context(), p, input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	status := http.StatusCreated
	if transfer.Status == models.TransferStatusPending {
		status = http.StatusAccepted
	}
	c.JSON(status, transfer)
}

func (tc *TransferController) TransferItems(c *gin.Context) {
	tc.request(c, tc.Transfers.TransferItems)
}

func (tc *TransferController) TransferExtras(c *gin.Context) {
	tc.request(c, tc.Transfers.TransferExtra)
}

func (tc *TransferController) TransferServices(c *gin.Context) {
	tc.request(c, tc.Transfers.MoveService)
}

type decideFunc func(ctx context.Context, p services.Principal, destCode string, id uuid.UUID) (*models.DepartmentTransfer, error)

func (tc *TransferController) decide(c *gin.Context, fn decideFunc) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	transfer, err := fn(c.Request.Context(), p, c.Param("code"), id)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, transfer)
}

// ApproveTransfer handles POST /departments/:code/transfers/:id/approve.
func (tc *TransferController) ApproveTransfer(c *gin.Context) {
	tc.decide(c, tc.Transfers.Approve)
}

func (tc *TransferController) RejectTransfer(c *gin.Context) {
	tc.decide(c, tc.Transfers.Reject)
}
