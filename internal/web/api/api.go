package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"homecore/internal/device"
	"homecore/internal/dispatch"
	"homecore/internal/models"
	"homecore/internal/notify"
)

// Dispatcher is the command facade the handlers drive
type Dispatcher interface {
	Execute(ctx context.Context, cmd models.PendingCommand) dispatch.Result
	Accessory(id string) (dispatch.Accessory, bool)
	Accessories() []dispatch.Accessory
	Pending() []models.PendingCommand
	Online() bool
	CurrentRate() int
	StatusMessage() string
}

type Queue interface {
	Remove(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
}

type CommandLog interface {
	RecentCommands(ctx context.Context, limit int) ([]models.CommandRecord, error)
}

type Dependencies struct {
	Dispatcher    Dispatcher
	Queue         Queue
	Notifications *notify.Engine
	// optional
	CommandLog CommandLog
}

// resultStatus maps a dispatch result to an HTTP status code
func resultStatus(res dispatch.Result) int {
	if res.Scene != nil && res.Scene.Status == models.ScenePartial {
		return http.StatusMultiStatus
	}
	switch res.Status {
	case dispatch.StatusSucceeded:
		return http.StatusOK
	case dispatch.StatusQueued:
		return http.StatusAccepted
	case dispatch.StatusRateLimited:
		return http.StatusTooManyRequests
	}
	if errors.Is(res.Err, models.ErrInvalidCommand) {
		return http.StatusBadRequest
	}
	if device.IsPermanent(res.Err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func writeResult(c *gin.Context, res dispatch.Result) {
	if res.Status == dispatch.StatusRateLimited {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
	}
	c.JSON(resultStatus(res), res)
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
