package chunkserver

import (
	"context"
	"net/http"

	"github.com/shirou/gopsutil/v3/disk"
)

type HealthReport struct {
	Status          int
	NumChunks       int
	DiskUsedPercent float64
}

type HealthMonitorService struct {
	chunkPath    string
	chunkService *ChunkService
}

func NewHealthReportService(chunkService *ChunkService, chunkPath string) *HealthMonitorService {
	return &HealthMonitorService{
		chunkPath:    chunkPath,
		chunkService: chunkService,
	}
}

// Report answers a liveness probe. A disk usage lookup failure does not make
// the node unhealthy; the chunk store itself is still serving.
func (h *HealthMonitorService) Report(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:    http.StatusOK,
		NumChunks: h.chunkService.Chunks.Len(),
	}

	usage, err := disk.UsageWithContext(ctx, h.chunkPath)
	if err != nil {
		log.Debugw("health", "error", "disk usage unavailable", "path", h.chunkPath, "err", err)
		return report
	}

	report.DiskUsedPercent = usage.UsedPercent
	return report
}
