package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Память на один воркер рендера: кадр 1080p RGBA, растеризатор и pipe ffmpeg
const workerMemoryBudget = 256 << 20

// RecommendedWorkers sizes the render pool from the physical core count and
// the memory currently available. It never returns less than 1.
func RecommendedWorkers() int {
	cores, err := cpu.Counts(false)
	if err != nil || cores <= 0 {
		cores = runtime.NumCPU()
	}

	var available uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		available = vm.Available
	}
	return workersFor(cores, available)
}

func workersFor(cores int, available uint64) int {
	n := cores
	if available > 0 {
		if byMem := int(available / workerMemoryBudget); byMem < n {
			n = byMem
		}
	}
	return max(1, n)
}
