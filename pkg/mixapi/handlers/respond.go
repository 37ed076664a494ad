package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/txn2/pimixer/pkg/mixapi/types"
)

func ok(c *gin.Context, data interface{}, count int) {
	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    data,
		Meta:    &types.MetaInfo{Count: count, Timestamp: time.Now()},
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, types.Response{
		Success: false,
		Error:   &types.ErrorInfo{Code: code, Message: message},
	})
}

func notReady(c *gin.Context, what string) {
	fail(c, http.StatusServiceUnavailable, "NOT_READY", what+" not available")
}

// countParam reads ?count= bounded to [1, max]
func countParam(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(def)))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
