package controllers

import (
	"net/http"

	"hotelpro-backend/services"
	"hotelpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// principal reads the caller set by utils.AuthMiddleware.
func principal(c *gin.Context) (services.Principal, bool) {
	userID := c.GetString(utils.ContextUserID)
	if userID == "" {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return services.Principal{}, false
	}
	return services.Principal{
		UserID:         userID,
		Role:           c.GetString(utils.ContextRole),
		DepartmentCode: c.GetString(utils.ContextDepartmentCode),
	}, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

func bind(c *gin.Context, input interface{}) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return false
	}
	return true
}
