// system.go collectors for host, resource and disk information
package diagnostics

import (
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/cpuspec"
	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
)

// SystemInfo represents basic system information
type SystemInfo struct {
	OS            string    `json:"os"`
	Architecture  string    `json:"architecture"`
	Hostname      string    `json:"hostname"`
	Platform      string    `json:"platform"`
	PlatformVer   string    `json:"platform_version"`
	KernelVersion string    `json:"kernel_version"`
	UpTime        uint64    `json:"uptime_seconds"`
	BootTime      time.Time `json:"boot_time"`
	AppStart      time.Time `json:"app_start_time"`
	AppUptime     int64     `json:"app_uptime_seconds"`
	NumCPU        int       `json:"num_cpu"`
	CPUModel      string    `json:"cpu_model"`
	GoVersion     string    `json:"go_version"`
	InContainer   bool      `json:"in_container"`
}

// ResourceInfo represents system resource usage data
type ResourceInfo struct {
	CPUUsage    float64 `json:"cpu_usage_percent"`
	MemoryTotal uint64  `json:"memory_total"`
	MemoryUsed  uint64  `json:"memory_used"`
	MemoryFree  uint64  `json:"memory_free"`
	MemoryUsage float64 `json:"memory_usage_percent"`
	SwapTotal   uint64  `json:"swap_total"`
	SwapUsed    uint64  `json:"swap_used"`
	SwapFree    uint64  `json:"swap_free"`
	SwapUsage   float64 `json:"swap_usage_percent"`
	ProcessMem  float64 `json:"process_memory_mb"`
	ProcessCPU  float64 `json:"process_cpu_percent"`
}

// DiskInfo represents information about a disk
type DiskInfo struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	Fstype     string  `json:"fstype"`
	Total      uint64  `json:"total"`
	Used       uint64  `json:"used"`
	Free       uint64  `json:"free"`
	UsagePerc  float64 `json:"usage_percent"`
}

// Use monotonic clock for start time
var startTime = time.Now()
var startMonotonicTime = time.Now() // This inherently includes monotonic clock reading

// CollectSystemInfo gathers static host information.
func CollectSystemInfo() (SystemInfo, error) {
	hostInfo, err := host.Info()
	if err != nil {
		return SystemInfo{}, errors.New(err).
			Component("diagnostics").
			Category(errors.CategorySystem).
			Context("operation", "host-info").
			Build()
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	// App uptime from the monotonic clock to survive system time changes
	appUptime := int64(time.Since(startMonotonicTime).Seconds())

	spec := cpuspec.GetCPUSpec()

	return SystemInfo{
		OS:            runtime.GOOS,
		Architecture:  runtime.GOARCH,
		Hostname:      hostname,
		Platform:      hostInfo.Platform,
		PlatformVer:   hostInfo.PlatformVersion,
		KernelVersion: hostInfo.KernelVersion,
		UpTime:        hostInfo.Uptime,
		BootTime:      time.Unix(int64(hostInfo.BootTime), 0),
		AppStart:      startTime,
		AppUptime:     appUptime,
		NumCPU:        runtime.NumCPU(),
		CPUModel:      spec.BrandName,
		GoVersion:     runtime.Version(),
		InContainer:   conf.RunningInContainer(),
	}, nil
}

// CollectResourceInfo gathers memory, swap, CPU and process usage. A zero
// sampleInterval reports CPU usage since the previous call instead of
// blocking for a sample window.
func CollectResourceInfo(sampleInterval time.Duration) (ResourceInfo, error) {
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return ResourceInfo{}, errors.New(err).
			Component("diagnostics").
			Category(errors.CategorySystem).
			Context("operation", "memory-info").
			Build()
	}

	swapInfo, err := mem.SwapMemory()
	if err != nil {
		return ResourceInfo{}, errors.New(err).
			Component("diagnostics").
			Category(errors.CategorySystem).
			Context("operation", "swap-info").
			Build()
	}

	cpuPercent, err := cpu.Percent(sampleInterval, false)
	if err != nil {
		return ResourceInfo{}, errors.New(err).
			Component("diagnostics").
			Category(errors.CategorySystem).
			Context("operation", "cpu-percent").
			Build()
	}

	resourceInfo := ResourceInfo{
		MemoryTotal: memInfo.Total,
		MemoryUsed:  memInfo.Used,
		MemoryFree:  memInfo.Free,
		MemoryUsage: memInfo.UsedPercent,
		SwapTotal:   swapInfo.Total,
		SwapUsed:    swapInfo.Used,
		SwapFree:    swapInfo.Free,
		SwapUsage:   swapInfo.UsedPercent,
	}

	if len(cpuPercent) > 0 {
		resourceInfo.CPUUsage = cpuPercent[0]
	}

	// Current process stats are best effort
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if procMem, err := proc.MemoryInfo(); err == nil && procMem != nil {
			resourceInfo.ProcessMem = float64(procMem.RSS) / 1024 / 1024
		}
		if procCPU, err := proc.CPUPercent(); err == nil {
			resourceInfo.ProcessCPU = procCPU
		}
	}

	return resourceInfo, nil
}

// CollectDiskInfo gathers usage for real filesystems, skipping virtual and
// system mounts.
func CollectDiskInfo() ([]DiskInfo, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil, errors.New(err).
			Component("diagnostics").
			Category(errors.CategorySystem).
			Context("operation", "disk-partitions").
			Build()
	}

	disks := []DiskInfo{}
	for _, partition := range partitions {
		if skipFilesystem(partition.Fstype) {
			continue
		}

		usage, err := disk.Usage(partition.Mountpoint)
		if err != nil {
			continue
		}

		disks = append(disks, DiskInfo{
			Device:     partition.Device,
			Mountpoint: partition.Mountpoint,
			Fstype:     partition.Fstype,
			Total:      usage.Total,
			Used:       usage.Used,
			Free:       usage.Free,
			UsagePerc:  usage.UsedPercent,
		})
	}

	return disks, nil
}

// virtualFilesystems lists filesystem types that never hold user data
var virtualFilesystems = map[string]bool{
	"sysfs":       true,
	"proc":        true,
	"procfs":      true,
	"devfs":       true,
	"devtmpfs":    true,
	"debugfs":     true,
	"securityfs":  true,
	"kernfs":      true,
	"fusectl":     true,
	"overlay":     true,
	"overlayfs":   true,
	"tmpfs":       true,
	"ramfs":       true,
	"devpts":      true,
	"hugetlbfs":   true,
	"mqueue":      true,
	"cgroup":      true,
	"cgroupfs":    true,
	"cgroup2":     true,
	"pstore":      true,
	"binfmt_misc": true,
	"squashfs":    true,
	"autofs":      true,
	"tracefs":     true,
	"configfs":    true,
}

func skipFilesystem(fstype string) bool {
	if virtualFilesystems[fstype] {
		return true
	}

	// Prefix checks catch variants like fuse.sshfs or cgroup2fs
	for _, prefix := range []string{"fuse", "cgroup", "proc", "sys", "dev"} {
		if strings.HasPrefix(fstype, prefix) {
			return true
		}
	}

	return false
}
