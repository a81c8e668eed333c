//go:build arm64

package dispatch

import "golang.org/x/sys/cpu"

func acceleratedAvailable() bool {
	return true
}

func probeFeatures() []string {
	var features []string
	if cpu.ARM64.HasASIMD {
		features = append(features, "asimd")
	}
	if cpu.ARM64.HasCRC32 {
		features = append(features, "crc32")
	}
	if cpu.ARM64.HasSVE {
		features = append(features, "sve")
	}

	return features
}
