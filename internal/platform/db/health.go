package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// Prober is the subset of *pgxpool.Pool the health check needs.
type Prober interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// HealthReport is the body of GET /health/db.
type HealthReport struct {
	Status        string     `json:"status"`
	ServerVersion string     `json:"server_version,omitempty"`
	Error         string     `json:"error,omitempty"`
	Pool          *PoolStats `json:"pool,omitempty"`
}

// Probe pings the database and reads its version.
func Probe(ctx context.Context, p Prober) *HealthReport {
	if err := p.Ping(ctx); err != nil {
		return &HealthReport{Status: "unhealthy", Error: err.Error()}
	}
	report := &HealthReport{Status: "healthy"}
	if err := p.QueryRow(ctx, "SHOW server_version").Scan(&report.ServerVersion); err != nil {
		report.Status = "degraded"
		report.Error = err.Error()
	}
	return report
}

// HealthHandler returns a handler for the database health check endpoint.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		report := Probe(ctx, pool)
		report.Pool = GetPoolStats(pool)

		status := http.StatusOK
		if report.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, report)
	}
}
