package controllers

import (
	"net/http"

	"hotelpro-backend/services"
	"hotelpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReceiveStockInput books goods into a scope. ItemID names an inventory item
// or an extra depending on the route.
type ReceiveStockInput struct {
	Scope     string    `json:"scope" binding:"required"`
	ItemID    uuid.UUID `json:"itemId" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required"`
	UnitPrice *int64    `json:"unitPrice"`
}

type InventoryController struct {
	Departments *services.DepartmentService
	Products    *services.ProductService
	Ledger      *services.Ledger
}

func (ic *InventoryController) CreateItem(c *gin.Context) {
	var input services.CreateItemInput
	if !bind(c, &input) {
		return
	}
	item, err := ic.Products.CreateItem(c.Request.Context(), input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (ic *InventoryController) ReceiveStock(c *gin.Context) {
	var input ReceiveStockInput
	if !bind(c, &input) {
		return
	}
	ctx := c.Request.Context()
	scope, err := ic.Departments.ResolveScope(ctx, input.Scope)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	balance, err := ic.Ledger.Receive(ctx, scope.Scope, input.ItemID, input.Quantity, input.UnitPrice)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// GetBalance answers GET /inventory/balance?scope=bar:pool&itemId=...
func (ic *InventoryController) GetBalance(c *gin.Context) {
	itemID, err := uuid.Parse(c.Query("itemId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid itemId format")
		return
	}
	ctx := c.Request.Context()
	scope, err := ic.Departments.ResolveScope(ctx, c.Query("scope"))
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	balance, err := ic.Ledger.GetBalance(ctx, scope.Scope, itemID)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (ic *InventoryController) CreateExtra(c *gin.Context) {
	var input services.CreateExtraInput
	if !bind(c, &input) {
		return
	}
	extra, err := ic.Products.CreateExtra(c.Request.Context(), input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, extra)
}

func (ic *InventoryController) ReceiveExtra(c *gin.Context) {
	var input ReceiveStockInput
	if !bind(c, &input) {
		return
	}
	ctx := c.Request.Context()
	scope, err := ic.Departments.ResolveScope(ctx, input.Scope)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	balance, err := ic.Ledger.ReceiveExtra(ctx, scope.Scope, input.ItemID, input.Quantity, input.UnitPrice)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}
