package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanDevice wraps the logical device handle. Physical device selection,
// queue setup and swapchain support live with the platform integration,
// outside this layer.
type VulkanDevice struct {
	LogicalDevice vk.Device
}
