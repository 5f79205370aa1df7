package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type healthStatus struct {
	Status      string    `json:"status"`
	LastChecked time.Time `json:"last_checked"`
	Uptime      string    `json:"uptime"`
}

var (
	healthMutex sync.RWMutex
	startTime   = time.Now()
	status      = "ok"
)

func HealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		healthMutex.RLock()
		current := status
		healthMutex.RUnlock()

		code := http.StatusOK
		if current != "ok" {
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, healthStatus{
			Status:      current,
			LastChecked: time.Now(),
			Uptime:      time.Since(startTime).String(),
		})
	}
}

// UpdateHealthStatus flips the reported status, e.g. when the database
// connection is lost.
func UpdateHealthStatus(s string) {
	healthMutex.Lock()
	status = s
	healthMutex.Unlock()
}
