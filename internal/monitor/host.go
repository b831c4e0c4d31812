package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostStats is a point-in-time sample of host resource usage
type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryTotal   uint64  `json:"memory_total"`
	MemoryUsed    uint64  `json:"memory_used"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskTotal     uint64  `json:"disk_total"`
	DiskFree      uint64  `json:"disk_free"`
}

// HostSampler reads host resource usage
type HostSampler interface {
	Sample(ctx context.Context) (*HostStats, error)
}

type gopsutilSampler struct {
	diskPath string
	interval time.Duration
}

// NewHostSampler samples the running host. CPU usage is measured over interval.
func NewHostSampler(diskPath string, interval time.Duration) HostSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &gopsutilSampler{diskPath: diskPath, interval: interval}
}

func (s *gopsutilSampler) Sample(ctx context.Context) (*HostStats, error) {
	percents, err := cpu.PercentWithContext(ctx, s.interval, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read cpu usage: %w", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory usage: %w", err)
	}

	du, err := disk.UsageWithContext(ctx, s.diskPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read disk usage of %s: %w", s.diskPath, err)
	}

	stats := &HostStats{
		MemoryPercent: vm.UsedPercent,
		MemoryTotal:   vm.Total,
		MemoryUsed:    vm.Used,
		DiskPercent:   du.UsedPercent,
		DiskTotal:     du.Total,
		DiskFree:      du.Free,
	}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	return stats, nil
}
