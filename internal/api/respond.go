package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/titanbreach/engine/internal/apperr"
)

// respondError writes the typed error's wire shape (spec §7): a machine
// code plus a human message, at the status the error code externalizes as.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		c.JSON(appErr.Status(), gin.H{"code": appErr.Code, "error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"code": apperr.CodeInternalError, "error": "an internal error occurred"})
}
