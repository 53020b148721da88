package services

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/models"
)

// Sensor keys that carry the SoC or package temperature
var cpuSensorKeys = []string{"cpu_thermal", "coretemp_package", "k10temp", "soc_thermal"}

// SystemService reports the host the console runs on
type SystemService struct {
	logger   *logging.Logger
	diskPath string
	sample   time.Duration
}

// NewSystemService creates a new SystemService reporting usage of diskPath
func NewSystemService(logger *logging.Logger, diskPath string) *SystemService {
	if diskPath == "" {
		diskPath = "/"
	}
	return &SystemService{
		logger:   logger.Component("system"),
		diskPath: diskPath,
		sample:   200 * time.Millisecond,
	}
}

// Info collects host statistics. Collectors that fail leave their fields
// zero; only a missing host description is an error.
func (s *SystemService) Info(ctx context.Context) (*models.SystemInfo, error) {
	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, NewServiceError(CodeCommandFailed, "failed to read host information: "+err.Error())
	}

	info := &models.SystemInfo{
		Hostname:      hi.Hostname,
		OS:            hi.OS,
		Platform:      strings.TrimSpace(hi.Platform + " " + hi.PlatformVersion),
		Kernel:        hi.KernelVersion,
		UptimeSeconds: hi.Uptime,
		DiskPath:      s.diskPath,
		CollectedAt:   time.Now().UTC(),
	}

	if pct, err := cpu.PercentWithContext(ctx, s.sample, false); err == nil && len(pct) > 0 {
		info.CPUPercent = pct[0]
	} else if err != nil {
		s.logger.Debug("CPU usage unavailable", "error", err)
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUCores = n
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		info.Load1, info.Load5, info.Load15 = avg.Load1, avg.Load5, avg.Load15
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal, info.MemoryUsed, info.MemoryPercent = vm.Total, vm.Used, vm.UsedPercent
	}
	if du, err := disk.UsageWithContext(ctx, s.diskPath); err == nil {
		info.DiskTotal, info.DiskUsed, info.DiskPercent = du.Total, du.Used, du.UsedPercent
	} else {
		s.logger.Debug("Disk usage unavailable", "path", s.diskPath, "error", err)
	}
	info.CPUTempC = s.cpuTemperature(ctx)

	return info, nil
}

func (s *SystemService) cpuTemperature(ctx context.Context) *float64 {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil && len(temps) == 0 {
		return nil
	}
	for _, key := range cpuSensorKeys {
		for _, t := range temps {
			if strings.HasPrefix(t.SensorKey, key) && t.Temperature > 0 {
				v := t.Temperature
				return &v
			}
		}
	}
	return nil
}
