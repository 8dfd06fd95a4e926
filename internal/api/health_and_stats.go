package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/process"
)

type HealthStatus struct {
	Status        string `json:"status"`
	ActiveJobs    int64  `json:"active_jobs"`
	QueuedJobs    int64  `json:"queued_jobs"`
	CompletedJobs int64  `json:"completed_jobs"`
	FailedJobs    int64  `json:"failed_jobs"`
	Workers       int    `json:"workers"`
	Artifacts     int    `json:"artifacts"`
	Uptime        string `json:"uptime"`
	MemoryUsage   string `json:"memory_usage"`
}

// GET /api/health
func (s *Server) handleHealth(c echo.Context) error {
	stats := s.queue.Stats()
	status := "healthy"
	if stats.Queued >= int64(stats.QueueCapacity) && stats.QueueCapacity > 0 {
		status = "overloaded"
	}
	return c.JSON(http.StatusOK, HealthStatus{
		Status:        status,
		ActiveJobs:    stats.Active,
		QueuedJobs:    stats.Queued,
		CompletedJobs: stats.Completed,
		FailedJobs:    stats.Failed,
		Workers:       stats.Workers,
		Artifacts:     s.store.Len(),
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		MemoryUsage:   memoryUsage(c.Request().Context()),
	})
}

// GET /api/metrics
func (s *Server) handleMetrics(c echo.Context) error {
	stats := s.queue.Stats()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"active_jobs":    stats.Active,
		"queued_jobs":    stats.Queued,
		"completed_jobs": stats.Completed,
		"failed_jobs":    stats.Failed,
		"workers":        stats.Workers,
		"queue_capacity": stats.QueueCapacity,
		"rate_limit":     s.config.RequestsPerSecond,
		"uptime_seconds": time.Since(s.started).Seconds(),
	})
}

// GET /api/stats
func (s *Server) handleStats(c echo.Context) error {
	stats := s.queue.Stats()
	body := map[string]interface{}{
		"artifacts":           s.store.Len(),
		"active_jobs":         stats.Active,
		"queued_jobs":         stats.Queued,
		"completed_jobs":      stats.Completed,
		"failed_jobs":         stats.Failed,
		"success_rate":        successRate(stats.Completed, stats.Failed),
		"avg_processing_time": stats.AvgProcessingTime.Seconds(),
	}
	if usage, err := disk.UsageWithContext(c.Request().Context(), s.config.ConvertedDir); err == nil {
		body["disk_free_bytes"] = usage.Free
		body["disk_used_percent"] = usage.UsedPercent
	}
	return c.JSON(http.StatusOK, body)
}

// successRate is the percentage of finished jobs that succeeded.
func successRate(completed, failed int64) float64 {
	total := completed + failed
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// memoryUsage reports the resident set size of this process.
func memoryUsage(ctx context.Context) string {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return "N/A"
	}
	info, err := p.MemoryInfoWithContext(ctx)
	if err != nil || info == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f MB", float64(info.RSS)/(1024*1024))
}
