package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
)

/**
 * @brief Structural description of one render target attachment, used for
 * render pass compatibility and cache keys.
 */
type Attachment struct {
	Format        vk.Format
	Samples       vk.SampleCountFlagBits
	Usage         vk.ImageUsageFlags
	InitialLayout vk.ImageLayout
	FinalLayout   vk.ImageLayout
}

/**
 * @brief The set of image views a render pass draws into, plus their
 * structural descriptions. Views are non-owning references.
 */
type RenderTarget struct {
	Extent      vk.Extent2D
	Views       []*VulkanImageView
	Attachments []Attachment
}

type VulkanFramebuffer struct {
	Handle     vk.Framebuffer
	Extent     vk.Extent2D
	Renderpass *VulkanRenderPass
}

func NewVulkanFramebuffer(context *VulkanContext, target *RenderTarget, renderpass *VulkanRenderPass) (*VulkanFramebuffer, error) {
	outFramebuffer := &VulkanFramebuffer{
		Renderpass: renderpass,
		Extent:     target.Extent,
	}

	attachments := make([]vk.ImageView, len(target.Views))
	for i, view := range target.Views {
		attachments[i] = view.Handle
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           target.Extent.Width,
		Height:          target.Extent.Height,
		Layers:          1,
	}
	framebufferCreateInfo.Deref()

	var pFramebuffer vk.Framebuffer
	if err := lockPool.SafeCall(FramebufferManagement, func() error {
		if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &pFramebuffer); res != vk.Success {
			err := core.NewVulkanError(int32(res), "failed to create framebuffer")
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}
	outFramebuffer.Handle = pFramebuffer

	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	if vfb.Handle != nil {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, vfb.Handle, context.Allocator)
		vfb.Handle = nil
	}
	vfb.Renderpass = nil
}
