package vulkan

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief Structured description of an image memory barrier. Pure
 * pass-through: correctness of the masks and layouts is the caller's
 * responsibility.
 */
type ImageMemoryBarrier struct {
	SrcStageMask  vk.PipelineStageFlags
	DstStageMask  vk.PipelineStageFlags
	SrcAccessMask vk.AccessFlags
	DstAccessMask vk.AccessFlags
	OldLayout     vk.ImageLayout
	NewLayout     vk.ImageLayout
}

/**
 * @brief Structured description of a buffer memory barrier.
 */
type BufferMemoryBarrier struct {
	SrcStageMask  vk.PipelineStageFlags
	DstStageMask  vk.PipelineStageFlags
	SrcAccessMask vk.AccessFlags
	DstAccessMask vk.AccessFlags
}
