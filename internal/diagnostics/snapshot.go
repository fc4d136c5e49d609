// Package diagnostics backs the doctor command: environment checks for
// the configured backends plus a best-effort system resource snapshot.
package diagnostics

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemSnapshot holds system-wide resource usage at one instant.
// Every section is best-effort: a probe that fails leaves its fields
// zero rather than failing the snapshot.
type SystemSnapshot struct {
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`

	CPUModel   string  `json:"cpu_model,omitempty"`
	CPUCores   int     `json:"cpu_cores"`
	CPUPercent float64 `json:"cpu_percent"`

	MemTotalMB float64 `json:"mem_total_mb"`
	MemUsedMB  float64 `json:"mem_used_mb"`
	MemPercent float64 `json:"mem_percent"`

	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskPercent float64 `json:"disk_percent"`

	LoadAvg1  float64 `json:"load_avg_1,omitempty"`
	LoadAvg5  float64 `json:"load_avg_5,omitempty"`
	LoadAvg15 float64 `json:"load_avg_15,omitempty"`
}

// CollectSnapshot gathers current system statistics.
func CollectSnapshot(ctx context.Context) SystemSnapshot {
	s := SystemSnapshot{
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		CPUCores:  runtime.NumCPU(),
	}

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		s.CPUModel = infos[0].ModelName
	}
	if percents, err := cpu.PercentWithContext(ctx, 100*time.Millisecond, false); err == nil && len(percents) > 0 {
		s.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.MemTotalMB = float64(vm.Total) / 1024 / 1024
		s.MemUsedMB = float64(vm.Used) / 1024 / 1024
		s.MemPercent = vm.UsedPercent
	}

	if du, err := disk.UsageWithContext(ctx, rootPath()); err == nil {
		s.DiskTotalGB = float64(du.Total) / 1024 / 1024 / 1024
		s.DiskUsedGB = float64(du.Used) / 1024 / 1024 / 1024
		s.DiskPercent = du.UsedPercent
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		s.LoadAvg1 = avg.Load1
		s.LoadAvg5 = avg.Load5
		s.LoadAvg15 = avg.Load15
	}

	return s
}

func rootPath() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}
