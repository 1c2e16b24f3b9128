package controllers

import (
	"net/http"

	"hotelpro-backend/services"
	"hotelpro-backend/utils"

	"github.com/gin-gonic/gin"
)

type ServiceController struct {
	Catalog *services.ServiceCatalog
}

// CreateService adds a bookable service to a department or section.
func (sc *ServiceController) CreateService(c *gin.Context) {
	var input services.CreateServiceInput
	if !bind(c, &input) {
		return
	}
	svc, err := sc.Catalog.Create(c.Request.Context(), input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// GetServices lists what a section offers, its own services first.
func (sc *ServiceController) GetServices(c *gin.Context) {
	section := c.Query("section")
	if section == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "section query parameter is required")
		return
	}
	list, err := sc.Catalog.ListForSection(c.Request.Context(), section)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
