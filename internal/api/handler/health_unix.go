//go:build !windows

package handler

import (
	"sync"
	"syscall"
	"time"
)

// cpuSampler remembers the previous reading so usage is reported as the
// delta between two polls of /api/v1/stats.
var cpuSampler struct {
	sync.Mutex
	cpu  time.Duration // user + system
	wall time.Time
}

// getDiskStats returns disk usage for the filesystem holding path.
func getDiskStats(path string) (total, free, used int64, usedPct float64) {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(path, &fs); err != nil {
		return 0, 0, 0, 0
	}
	total = int64(fs.Blocks) * int64(fs.Bsize)
	free = int64(fs.Bavail) * int64(fs.Bsize)
	used = total - free
	if total > 0 {
		usedPct = float64(used) / float64(total) * 100
	}
	return total, free, used, usedPct
}

// getCPUUsage returns this process's CPU usage since the previous call,
// capped at one core. The first call returns 0.
func getCPUUsage() float64 {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	cpu := time.Duration(ru.Utime.Nano()) + time.Duration(ru.Stime.Nano())
	now := time.Now()

	cpuSampler.Lock()
	defer cpuSampler.Unlock()

	prevCPU, prevWall := cpuSampler.cpu, cpuSampler.wall
	cpuSampler.cpu, cpuSampler.wall = cpu, now
	if prevWall.IsZero() {
		return 0
	}

	wall := now.Sub(prevWall)
	if wall <= 0 {
		return 0
	}
	pct := float64(cpu-prevCPU) / float64(wall) * 100
	return min(max(pct, 0), 100)
}
