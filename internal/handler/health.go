package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health is a simple liveness endpoint used by load balancers and
// monitoring systems. It returns a plain text "ok" with 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Readiness reports whether the backing stores answer. Redis is optional:
// when no client is configured it is reported as "disabled" and does not
// fail the check.
type Readiness struct {
	DB    *sql.DB
	Redis *redis.Client
}

// Check pings MySQL and Redis with a short deadline and answers 200 or 503.
func (r Readiness) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := echo.Map{"db": "ok", "redis": "disabled"}
	if r.DB == nil {
		out["db"] = "disabled"
	} else if err := r.DB.PingContext(ctx); err != nil {
		out["db"] = "down"
		status = http.StatusServiceUnavailable
	}
	if r.Redis != nil {
		if err := r.Redis.Ping(ctx).Err(); err != nil {
			out["redis"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			out["redis"] = "ok"
		}
	}
	return c.JSON(status, out)
}
