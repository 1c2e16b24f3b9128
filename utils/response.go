// utils/response.go
package utils

import (
	"crypto/rand"
	"math/big"
	"net/http"

	"hotelpro-backend/apperror"
	"hotelpro-backend/logger"

	"github.com/gin-gonic/gin"
)

const randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    apperror.Kind `json:"code"`
	Message string        `json:"message"`
}

// RespondWithError aborts with a plain status and message.
func RespondWithError(c *gin.Context, status int, message string) {
	code := apperror.KindInternal
	switch {
	case status == http.StatusBadRequest:
		code = apperror.KindValidation
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		code = apperror.KindForbidden
	case status == http.StatusNotFound:
		code = apperror.KindNotFound
	case status == http.StatusConflict:
		code = apperror.KindConflict
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}

// StatusOf maps an error kind onto its HTTP status.
func StatusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInsufficientStock, apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// RespondWithAppError writes err as {code, message}. Internal details stay in
// the log.
func RespondWithAppError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal {
		logger.App().WithError(err).WithFields(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("request failed")
	}
	c.AbortWithStatusJSON(StatusOf(kind), ErrorResponse{Code: kind, Message: apperror.MessageOf(err)})
}

// GenerateRandomString returns n characters from [a-z0-9].
func GenerateRandomString(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(randomAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("failed to read random bytes")
		}
		b[i] = randomAlphabet[idx.Int64()]
	}
	return string(b)
}
