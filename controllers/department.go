package controllers

import (
	"net/http"

	"hotelpro-backend/models"
	"hotelpro-backend/services"
	"hotelpro-backend/utils"

	"github.com/gin-gonic/gin"
)

type DepartmentController struct {
	Departments *services.DepartmentService
	Orders      *services.OrderService
}

func (dc *DepartmentController) CreateDepartment(c *gin.Context) {
	var input services.CreateDepartmentInput
	if !bind(c, &input) {
		return
	}
	dept, err := dc.Departments.CreateDepartment(c.Request.Context(), input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dept)
}

func (dc *DepartmentController) CreateSection(c *gin.Context) {
	var input services.CreateSectionInput
	if !bind(c, &input) {
		return
	}
	section, err := dc.Departments.CreateSection(c.Request.Context(), c.Param("code"), input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, section)
}

// GetQueue lists order rollups for a department or section code.
func (dc *DepartmentController) GetQueue(c *gin.Context) {
	status := models.LineStatus(c.Query("status"))
	rows, err := dc.Orders.DepartmentQueue(c.Request.Context(), c.Param("code"), status)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
