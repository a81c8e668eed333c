//go:build amd64

package dispatch

import "golang.org/x/sys/cpu"

// The LZ4 assembly decoder needs only baseline amd64 instructions.
func acceleratedAvailable() bool {
	return cpu.X86.HasSSE2
}

func probeFeatures() []string {
	var features []string
	if cpu.X86.HasSSE41 {
		features = append(features, "sse4.1")
	}
	if cpu.X86.HasAVX2 {
		features = append(features, "avx2")
	}
	if cpu.X86.HasBMI2 {
		features = append(features, "bmi2")
	}
	if cpu.X86.HasAVX512F {
		features = append(features, "avx512f")
	}

	return features
}
