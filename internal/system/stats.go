package system

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

// Stats is a snapshot of this process's resource usage.
type Stats struct {
	CPUPercent float64
	RSS        uint64
	Threads    int32
	Goroutines int
}

// CollectStats samples the current process.
func CollectStats() (Stats, error) {
	s := Stats{Goroutines: runtime.NumGoroutine()}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return s, err
	}
	if s.CPUPercent, err = p.CPUPercent(); err != nil {
		return s, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return s, err
	}
	s.RSS = mem.RSS
	if s.Threads, err = p.NumThreads(); err != nil {
		return s, err
	}
	return s, nil
}

// RSSMB returns the resident set size in megabytes.
func (s Stats) RSSMB() float64 {
	return float64(s.RSS) / (1024 * 1024)
}
