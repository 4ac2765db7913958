// Package device selects the compute device a run owns for its duration.
package device

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
)

// ErrUnavailable is returned when the requested device is absent on this host.
var ErrUnavailable = errors.New("device unavailable")

// Device is the device selected at startup.
type Device struct {
	Name    string
	Workers int // number of goroutines used for feature extraction
}

// Describe says where computation runs. The avx512 and cuda devices are
// availability checks; models always run on the cpu worker pool.
func (d Device) Describe() string {
	pool := fmt.Sprintf("cpu worker pool of %d", d.Workers)
	if d.Name == "cpu" {
		return pool
	}
	return fmt.Sprintf("%s present, computing on the %s", d.Name, pool)
}

// Names lists the device names accepted by Open.
var Names = []string{"cpu", "avx512", "cuda"}

// Open checks and returns the named device. workers <= 0 means one worker per CPU.
func Open(name string, workers int) (Device, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	switch name {
	case "", "cpu":
		return Device{Name: "cpu", Workers: workers}, nil
	case "avx512":
		if !cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ) {
			return Device{}, errors.Wrapf(ErrUnavailable, "%s: cpu %q lacks AVX512F/AVX512DQ", name, cpuid.CPU.BrandName)
		}
		return Device{Name: name, Workers: workers}, nil
	case "cuda":
		n, err := cudaDevices()
		if err != nil {
			return Device{}, errors.Wrapf(ErrUnavailable, "%s: %v", name, err)
		}
		if n == 0 {
			return Device{}, errors.Wrapf(ErrUnavailable, "%s: no devices", name)
		}
		return Device{Name: name, Workers: workers}, nil
	}
	return Device{}, errors.Errorf("unknown device %q", name)
}
