package cpuspec

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterminePerformanceCores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		brand string
		want  int
	}{
		{"12th Gen Intel(R) Core(TM) i9-12900K", 8},
		{"13th Gen Intel(R) Core(TM) i5-13600K", 6},
		{"Intel(R) Core(TM) i3-14100F", 4},
		{"Intel(R) Core(TM) Ultra 7 265K", 8},
		{"Intel(R) Core(TM) Ultra 5 225", 4},
		{"Apple M1", 4},
		{"Apple M2 Max", 12},
		{"Apple M3  Ultra", 24},
		{"AMD Ryzen 7 5800X 8-Core Processor", 0},
		{"ARMv8 Processor rev 4 (v8l)", 0},
		{"", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, determinePerformanceCores(tt.brand), tt.brand)
	}
}

func TestGetOptimalThreadCount(t *testing.T) {
	t.Parallel()

	available := runtime.NumCPU()

	assert.Equal(t, 1, CPUSpec{PerformanceCores: 1, LogicalCores: 16}.GetOptimalThreadCount())
	assert.Equal(t, min(1, available), CPUSpec{LogicalCores: 1}.GetOptimalThreadCount())
	assert.Equal(t, available, CPUSpec{PerformanceCores: available + 64}.GetOptimalThreadCount())
	assert.Equal(t, available, CPUSpec{}.GetOptimalThreadCount())
	assert.GreaterOrEqual(t, OptimalThreads(), 1)
}
