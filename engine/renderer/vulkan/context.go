package vulkan

import (
	vk "github.com/goki/vulkan"
)

var lockPool = NewVulkanLockPool()

// VulkanContext carries the handles every recording sequence needs: the
// logical device, the allocation callbacks and the shared resource cache.
type VulkanContext struct {
	Device    *VulkanDevice
	Allocator *vk.AllocationCallbacks

	// ResourceCache materializes pipelines, descriptor sets, render passes
	// and framebuffers on demand. Shared between recording sequences.
	ResourceCache ResourceCache
}
