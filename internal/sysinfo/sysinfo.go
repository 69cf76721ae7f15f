// Package sysinfo collects a snapshot of the host a test session ran on.
//
// The snapshot is rendered into the description of a created TestRail run, so
// every automated run records the environment that produced its results.
//
// Information collected:
//   - OS: linux, darwin, windows, etc.
//   - Platform: ubuntu, centos, debian, etc.
//   - Platform version: 22.04, 9, etc.
//   - Kernel version: 5.15.0-generic, etc.
//   - Architecture: amd64, arm64, etc.
//   - Hostname
//   - CPU model and logical CPU count
//   - Total memory
package sysinfo

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot contains static information about the host.
type Snapshot struct {
	// OS is the operating system name (linux, darwin, windows)
	OS string `json:"os"`

	// Platform is the distribution name (ubuntu, centos, debian, alpine)
	Platform string `json:"platform"`

	// PlatformVersion is the distribution version (22.04, 9.3, etc.)
	PlatformVersion string `json:"platformVersion"`

	// KernelVersion is the kernel version string
	KernelVersion string `json:"kernelVersion"`

	// Arch is the Go architecture (amd64, arm64) - matches binary arch
	Arch string `json:"arch"`

	// Hostname is the system hostname
	Hostname string `json:"hostname"`

	// CPUModel is the CPU model string (Intel(R) Core(TM) i7-9750H, etc.)
	CPUModel string `json:"cpuModel"`

	// CPUThreads is the logical CPU count (with hyperthreading)
	CPUThreads int `json:"cpuThreads"`

	// MemoryTotal is the total RAM in bytes
	MemoryTotal uint64 `json:"memoryTotal"`
}

// Collect gathers the host snapshot. Individual probe failures leave the
// corresponding fields empty; the snapshot is informational only.
func Collect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	hostInfo, err := host.InfoWithContext(ctx)
	if err == nil {
		snap.Platform = hostInfo.Platform
		snap.PlatformVersion = hostInfo.PlatformVersion
		snap.KernelVersion = hostInfo.KernelVersion
		snap.Hostname = hostInfo.Hostname
	}

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		snap.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if counts, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPUThreads = counts
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemoryTotal = vm.Total
	}

	return snap, nil
}

// Describe renders the snapshot as a short block of text for a TestRail run
// description.
func (s *Snapshot) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Host: %s (%s/%s)\n", s.Hostname, s.OS, s.Arch)
	if s.Platform != "" {
		fmt.Fprintf(&b, "Platform: %s %s (kernel %s)\n", s.Platform, s.PlatformVersion, s.KernelVersion)
	}
	if s.CPUModel != "" || s.CPUThreads > 0 {
		fmt.Fprintf(&b, "CPU: %s, %d threads\n", s.CPUModel, s.CPUThreads)
	}
	if s.MemoryTotal > 0 {
		fmt.Fprintf(&b, "Memory: %.1f GiB\n", float64(s.MemoryTotal)/(1024*1024*1024))
	}
	return strings.TrimRight(b.String(), "\n")
}
