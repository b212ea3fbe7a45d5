package reports

import (
	"fmt"
	"strconv"

	"github.com/shirou/gopsutil/v4/mem"
)

const (
	minWorkers = 1
	maxWorkers = 16
	// memory reserved for the service itself and the products cache path
	reservedBytes = int64(1024 * 1024 * 1024)
	// upper bound of one report held in memory while rendering
	bytesPerWorker = int64(256 * 1024 * 1024)
)

// WorkerCount resolves the reports.workers setting: "auto" or a positive integer.
func WorkerCount(setting string) (int, error) {
	if setting == "" || setting == "auto" {
		return autoWorkerCount(), nil
	}

	n, err := strconv.Atoi(setting)
	if err != nil {
		return 0, fmt.Errorf("workers must be 'auto' or an integer, got %q", setting)
	}
	if n <= 0 {
		return 0, fmt.Errorf("workers must be positive, got %d", n)
	}
	return n, nil
}

// autoWorkerCount sizes the pool from total system memory
func autoWorkerCount() int {
	total := int64(4 * 1024 * 1024 * 1024) // 4GB fallback
	if v, err := mem.VirtualMemory(); err == nil {
		total = int64(v.Total)
	}
	return workersForMemory(total)
}

func workersForMemory(totalBytes int64) int {
	n := int((totalBytes - reservedBytes) / bytesPerWorker)
	if n < minWorkers {
		return minWorkers
	}
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}
