package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Checker is a health check function that returns an error if unhealthy
type Checker func(ctx context.Context) error

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 2 * time.Second

// RedisChecker pings the snapshot store.
func RedisChecker(client *redis.Client) Checker {
	return func(ctx context.Context) error {
		if client == nil {
			return fmt.Errorf("redis client is nil")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	}
}

// ConnectedChecker wraps anything that can report a live connection, such
// as the event bus.
func ConnectedChecker(name string, connected func() bool) Checker {
	return func(context.Context) error {
		if !connected() {
			return fmt.Errorf("%s is not connected", name)
		}
		return nil
	}
}

// BreakerChecker fails while the breaker refuses requests.
func BreakerChecker(name string, allow func() bool) Checker {
	return func(context.Context) error {
		if !allow() {
			return fmt.Errorf("circuit breaker %s is open", name)
		}
		return nil
	}
}

// Result is the outcome of one readiness run.
type Result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Run executes every check with DefaultTimeout each. Status is "ready" only
// when all checks pass.
func Run(ctx context.Context, checks map[string]Checker) Result {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	res := Result{Status: "ready", Checks: make(map[string]string, len(checks))}
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		err := checks[name](checkCtx)
		cancel()

		if err != nil {
			res.Status = "not_ready"
			res.Checks[name] = err.Error()
			continue
		}
		res.Checks[name] = "ok"
	}
	return res
}

// ReadinessHandler serves Run as JSON: 200 when ready, 503 otherwise.
func ReadinessHandler(service, version string, checks map[string]Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := Run(c.Request.Context(), checks)
		status := http.StatusOK
		if res.Status != "ready" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"service": service,
			"version": version,
			"status":  res.Status,
			"checks":  res.Checks,
		})
	}
}
