package metrics

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemStats are the host figures attached to every report.
type SystemStats struct {
	CPUPercent    float64
	MemoryPercent int64
}

// SystemSampler reads host statistics.
type SystemSampler interface {
	Sample(ctx context.Context) SystemStats
}

// HostSampler reads load average and memory usage through gopsutil.
// Failures are logged and reported as zero.
type HostSampler struct {
	Logger zerolog.Logger
}

func (h HostSampler) Sample(ctx context.Context) SystemStats {
	var stats SystemStats

	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("read load average")
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("count cpus")
	}
	if avg != nil {
		stats.CPUPercent = cpuPercent(avg.Load1, cores)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("read memory stats")
	} else {
		stats.MemoryPercent = memoryPercent(vm.Total, vm.Free)
	}
	return stats
}

// cpuPercent is the 1-minute load per logical core, rounded to two decimals
// before scaling to a percentage.
func cpuPercent(load1 float64, cores int) float64 {
	if cores <= 0 {
		return 0
	}
	ratio := math.Round(load1/float64(cores)*100) / 100
	return ratio * 100
}

func memoryPercent(total, free uint64) int64 {
	if total == 0 || free > total {
		return 0
	}
	used := float64(total - free)
	return int64(used / float64(total) * 100)
}
