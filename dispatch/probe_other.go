//go:build !amd64 && !arm64

package dispatch

func acceleratedAvailable() bool {
	return false
}

func probeFeatures() []string {
	return nil
}
