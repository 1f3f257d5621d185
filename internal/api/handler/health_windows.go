//go:build windows

package handler

// getDiskStats returns disk usage statistics for the given path.
// On Windows, this is a stub that returns zeros.
func getDiskStats(path string) (total, free, used int64, usedPct float64) {
	// not implemented; the service runs in Linux containers
	return 0, 0, 0, 0
}

// getCPUUsage returns the CPU usage percentage for this process.
// On Windows, this is a stub that returns zero.
func getCPUUsage() float64 {
	// not implemented; the service runs in Linux containers
	return 0
}
