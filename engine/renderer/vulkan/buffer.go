package vulkan

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief A non-owning view over a Vulkan buffer. The recording layer only
 * reads the handle; allocation and destruction belong to the caller.
 */
type VulkanBuffer struct {
	Handle vk.Buffer
	// Total size of the underlying allocation, in bytes.
	TotalSize vk.DeviceSize
}

/**
 * @brief A non-owning view over a Vulkan image.
 */
type VulkanImage struct {
	Handle vk.Image
	Format vk.Format
	Width  uint32
	Height uint32
}

/**
 * @brief A non-owning view over a Vulkan image view. Format and subresource
 * range are carried along because the descriptor flush derives image layouts
 * and barrier ranges from them.
 */
type VulkanImageView struct {
	Handle           vk.ImageView
	Format           vk.Format
	Image            *VulkanImage
	SubresourceRange vk.ImageSubresourceRange
}

type VulkanSampler struct {
	Handle vk.Sampler
}
