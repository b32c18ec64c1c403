package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/memorybox/errors"
)

// JSON writes the uniform response envelope.
func JSON(c *gin.Context, message string, status int, data interface{}, err error) {
	errMessage := ""
	if err != nil {
		errMessage = err.Error()
	}
	c.JSON(status, gin.H{
		"message": message,
		"data":    data,
		"errors":  errMessage,
		"status":  http.StatusText(status),
	})
}

// HandleErrors maps an error to its carried HTTP status, defaulting to 500.
func HandleErrors(c *gin.Context, err error) {
	JSON(c, "", errs.Status(err), nil, err)
}
