package apperr

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func httpStatus(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case TransientInfra:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Abort maps err onto the transport response. Every gin handler funnels
// failures through here so domain code stays free of status codes.
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(httpStatus(KindOf(err)), gin.H{"error": err.Error()})
}
