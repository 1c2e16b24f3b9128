package controllers

import (
	"net/http"

	"hotelpro-backend/services"
	"hotelpro-backend/utils"

	"github.com/gin-gonic/gin"
)

type CustomerController struct {
	Customers *services.CustomerService
}

// CreateCustomer creates a new customer
func (cc *CustomerController) CreateCustomer(c *gin.Context) {
	var input services.CreateCustomerInput
	if !bind(c, &input) {
		return
	}

	customer, err := cc.Customers.Create(c.Request.Context(), input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// GetCustomer retrieves a single customer
func (cc *CustomerController) GetCustomer(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	customer, err := cc.Customers.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}
