package controllers

import (
	"net/http"

	"hotelpro-backend/services"
	"hotelpro-backend/utils"

	"github.com/gin-gonic/gin"
)

type UnitController struct {
	Units *services.UnitService
}

func (uc *UnitController) CreateUnit(c *gin.Context) {
	var input services.CreateUnitInput
	if !bind(c, &input) {
		return
	}
	unit, err := uc.Units.CreateUnit(c.Request.Context(), input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, unit)
}

func (uc *UnitController) UpdateStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input services.UnitStatusInput
	if !bind(c, &input) {
		return
	}
	unit, err := uc.Units.UpdateStatus(c.Request.Context(), p.UserID, id, input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

func (uc *UnitController) GetHistory(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	history, err := uc.Units.History(c.Request.Context(), id)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (uc *UnitController) CreateReservation(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input services.ReservationInput
	if !bind(c, &input) {
		return
	}
	reservation, err := uc.Units.CreateReservation(c.Request.Context(), id, input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

func (uc *UnitController) OpenMaintenance(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input services.MaintenanceInput
	if !bind(c, &input) {
		return
	}
	request, err := uc.Units.OpenMaintenance(c.Request.Context(), p.UserID, id, input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// VerifyMaintenance closes a request; the last one returns the unit to service.
func (uc *UnitController) VerifyMaintenance(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	request, err := uc.Units.VerifyMaintenance(c.Request.Context(), p.UserID, id)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}
