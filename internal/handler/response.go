package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/internal/constants"
	apperrors "github.com/nimbuswolf/finance-api/internal/errors"
)

// writeError maps err onto the error envelope. The text of an unexpected error
// is only exposed when exposeInternal is set.
func writeError(c *gin.Context, err error, exposeInternal bool) {
	status := apperrors.ToHTTPStatus(err)

	domainErr := apperrors.GetDomainError(err)
	if domainErr == nil || status == http.StatusInternalServerError {
		var details []string
		if exposeInternal {
			details = []string{err.Error()}
		}
		c.JSON(http.StatusInternalServerError, constants.BuildErrorResponse(constants.MsgInternalError, details))
		return
	}

	c.JSON(status, constants.BuildErrorResponse(domainErr.Message, domainErr.Details))
}
