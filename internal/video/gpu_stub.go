//go:build !vulkan

package video

import "fmt"

// newGPUEncoder is unavailable in CPU-only builds (the default): the
// vulkan build tag was not set, so it fails at once without attempting
// hardware init, and NewEncoder's BackendAuto path logs the fallback
// warning and uses the CPU encoder.
func newGPUEncoder(cfg Config) (Encoder, error) {
	return nil, fmt.Errorf("video: built without the vulkan tag")
}
