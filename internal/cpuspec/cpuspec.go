// Package cpuspec picks an interpreter thread count for the host CPU.
package cpuspec

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName        string
	PerformanceCores int
	LogicalCores     int
}

var (
	intelHybridRegex = regexp.MustCompile(`intel.*(?:core.*i[3579]-(\d{5})|core.*ultra\s+([579])\s+(?:processor\s+)?(\d{3}))`)
	appleRegex       = regexp.MustCompile(`apple\s+(m[1-4](?:\s*(?:pro|max|ultra))?)`)
)

// Performance core counts of hybrid Intel parts, keyed by model number prefix.
var intelPCores = map[string]int{
	"12900": 8, "12700": 8, "12600": 6, "12400": 6, "12100": 4,
	"13900": 8, "13700": 8, "13600": 6, "13500": 6, "13400": 6, "13100": 4,
	"14900": 8, "14700": 8, "14600": 6, "14400": 6, "14100": 4,
}

// Core Ultra performance core counts, keyed by "<series> <model>"
var intelUltraPCores = map[string]int{
	"9 285": 8,
	"7 265": 8, "7 255": 8,
	"5 235": 6, "5 225": 4,
}

// Apple Silicon performance core counts. Where a chip ships in two
// configurations the larger count is used.
var applePCores = map[string]int{
	"m1": 4, "m1 pro": 8, "m1 max": 8, "m1 ultra": 16,
	"m2": 4, "m2 pro": 8, "m2 max": 12, "m2 ultra": 24,
	"m3": 4, "m3 pro": 8, "m3 max": 12, "m3 ultra": 24,
	"m4": 6, "m4 pro": 8, "m4 max": 12,
}

// GetCPUSpec returns the specification of the host CPU
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:        cpuid.CPU.BrandName,
		PerformanceCores: determinePerformanceCores(cpuid.CPU.BrandName),
		LogicalCores:     cpuid.CPU.LogicalCores,
	}
}

// GetOptimalThreadCount returns the recommended number of threads for detector
// inference. Hybrid CPUs use their performance cores only; the result never
// exceeds the CPUs available to the process.
func (c CPUSpec) GetOptimalThreadCount() int {
	available := runtime.NumCPU()

	threads := c.PerformanceCores
	if threads <= 0 {
		threads = c.LogicalCores
	}
	if threads <= 0 || threads > available {
		threads = available
	}
	return max(threads, 1)
}

// OptimalThreads is shorthand for GetCPUSpec().GetOptimalThreadCount()
func OptimalThreads() int {
	return GetCPUSpec().GetOptimalThreadCount()
}

func determinePerformanceCores(brandName string) int {
	brandName = strings.ToLower(brandName)

	if m := intelHybridRegex.FindStringSubmatch(brandName); m != nil {
		if m[1] != "" {
			return intelPCores[m[1]]
		}
		return intelUltraPCores[m[2]+" "+m[3]]
	}

	if m := appleRegex.FindStringSubmatch(brandName); m != nil {
		chip := strings.Join(strings.Fields(m[1]), " ")
		return applePCores[chip]
	}

	return 0
}
