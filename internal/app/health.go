package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		infra: infra,
	}
}

// Handler reports the state of each backing store by name. Postgres alone
// carries the credential data; Redis only backs the optional rate-limiter
// backend, but a broken Redis still fails the check so it gets noticed
// before the limiter silently stops limiting.
func (h *HealthChecker) Handler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, 2)

	go func() {
		results <- result{"postgres", h.infra.Postgres().Ping(ctx)}
	}()
	go func() {
		results <- result{"redis", h.infra.Redis().Ping(ctx)}
	}()

	checks := gin.H{}
	status := http.StatusOK
	for i := 0; i < cap(results); i++ {
		r := <-results
		if r.err != nil {
			checks[r.name] = r.err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[r.name] = "pass"
	}

	overall := "pass"
	if status != http.StatusOK {
		overall = "fail"
	}
	c.JSON(status, gin.H{
		"status": overall,
		"checks": checks,
	})
}
