package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/rental"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{rental.ErrNotFound, http.StatusNotFound},
	{rental.ErrInvalidTransition, http.StatusConflict},
	{rental.ErrConflictingSession, http.StatusConflict},
	{rental.ErrInvalidState, http.StatusConflict},
	{rental.ErrUnavailable, http.StatusConflict},
	{rental.ErrOutOfRange, http.StatusUnprocessableEntity},
	{rental.ErrInvalidInput, http.StatusBadRequest},
	{rental.ErrTransient, http.StatusServiceUnavailable},
}

func statusOf(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// abortWithError answers with the status the core error maps to. A conflicting
// session also names the battery the user still holds.
func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	body := gin.H{"error": err.Error()}

	var conflict *rental.ConflictingSessionError
	if errors.As(err, &conflict) {
		body["usage_id"] = conflict.SessionID
		body["battery_id"] = conflict.BatteryID
		body["battery_name"] = conflict.BatteryName
		body["serial_number"] = conflict.SerialNumber
	}
	if status == http.StatusServiceUnavailable {
		body["retryable"] = true
	}
	if status >= http.StatusInternalServerError {
		common.GetLoggerWith(common.LoggerNameRestfulServer).Warn("Request failed",
			zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

// idParam reads a positive numeric path parameter, answering 400 when it is not one.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
