package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockinterview/internal/contract"
	"github.com/yoockh/mockinterview/internal/utils"
)

// writeError maps an AppError to its status and body. Anything else is reported as an
// opaque internal error; the cause stays in c.Errors for the request logger.
func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	_ = c.Error(err)

	body := contract.APIError{Code: string(utils.CodeInternal), Message: http.StatusText(status)}
	var ae *utils.AppError
	switch {
	case errors.As(err, &ae):
		body.Code = string(ae.Code)
		if ae.Message != "" {
			body.Message = ae.Message
		}
	case errors.Is(err, utils.ErrNotFound):
		body.Code = string(utils.CodeNotFound)
	}
	if utils.Retryable(err) {
		c.Header("Retry-After", "5")
	}
	c.AbortWithStatusJSON(status, body)
}

func requireUserID(c *gin.Context) (string, bool) {
	if s := c.GetString("user_id"); s != "" {
		return s, true
	}
	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}
