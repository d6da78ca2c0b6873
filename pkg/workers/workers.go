package workers

import (
	"os"
	"runtime"
	"strconv"

	"github.com/shirou/gopsutil/v4/cpu"
)

// EnvOverride forces the engine worker count when set to a positive integer
const EnvOverride = "TRANSCODE_WORKERS"

// cpuCounts is swapped in tests
var cpuCounts = cpu.Counts

// Cores returns the usable logical core count: what the host reports,
// capped by GOMAXPROCS so container CPU limits are respected.
func Cores() int {
	available := runtime.GOMAXPROCS(0)

	host, err := cpuCounts(true)
	if err == nil && host > 0 && host < available {
		available = host
	}
	if available < 1 {
		available = 1
	}
	return available
}

// ForEngine returns how many codec engine processes may run at once.
// configured > 0 wins, then the env override, then the core count.
// The result is never below min.
func ForEngine(configured, min int) int {
	n := configured
	if n <= 0 {
		if override := os.Getenv(EnvOverride); override != "" {
			if count, err := strconv.Atoi(override); err == nil && count > 0 {
				n = count
			}
		}
	}
	if n <= 0 {
		n = Cores()
	}
	if n < min {
		n = min
	}
	return n
}
