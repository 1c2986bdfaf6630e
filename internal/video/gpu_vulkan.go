//go:build vulkan

package video

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// newGPUEncoder brings up a Vulkan instance as the first step of the
// hardware video encode path. Only instance bring-up is implemented
// against a real vulkan-go/vulkan call (vk.Init/vk.CreateInstance): no
// Vulkan Video encode-session binding exists anywhere in the retrieval
// pack to wire a genuine RGB→NV12→hardware-encode submission against,
// so construction intentionally fails past instance creation, driving
// the documented GPU-init-failure → CPU-fallback path in NewEncoder.
func newGPUEncoder(cfg Config) (Encoder, error) {
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("video: vulkan init: %w", err)
	}

	appInfo := &vk.ApplicationInfo{
		SType:      vk.StructureTypeApplicationInfo,
		PApiName:   "wows-timelapse\x00",
		ApiVersion: vk.MakeVersion(1, 0, 0),
	}
	createInfo := &vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	var instance vk.Instance
	if res := vk.CreateInstance(createInfo, nil, &instance); res != vk.Success {
		return nil, fmt.Errorf("video: vulkan create instance: result %d", res)
	}
	defer vk.DestroyInstance(instance, nil)

	return nil, fmt.Errorf("video: no vulkan video encode session binding available")
}
