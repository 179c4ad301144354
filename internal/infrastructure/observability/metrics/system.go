package metrics

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// systemSampler reads process and host state at snapshot time. CPU usage is
// measured as the delta since the previous sample, so the first reading of
// a fresh sampler reports zero.
type systemSampler struct {
	mu sync.Mutex
}

func newSystemSampler() *systemSampler {
	s := &systemSampler{}
	// prime the CPU delta baseline
	_, _ = cpu.Percent(0, false)
	return s
}

func (s *systemSampler) sample() SystemMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out SystemMetrics

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		out.CPUUsagePercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		out.MemoryUsagePercent = vm.UsedPercent
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	out.HeapAllocMB = float64(memStats.HeapAlloc) / (1024 * 1024)
	out.HeapSysMB = float64(memStats.HeapSys) / (1024 * 1024)
	if memStats.HeapSys > 0 {
		out.HeapUsagePercent = float64(memStats.HeapAlloc) / float64(memStats.HeapSys) * 100
	}
	out.GoroutineCount = runtime.NumGoroutine()
	out.GCCycles = memStats.NumGC
	out.GCPauseTotalMs = float64(memStats.PauseTotalNs) / 1e6

	return out
}
