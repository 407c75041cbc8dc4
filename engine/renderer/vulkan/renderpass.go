package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
)

/**
 * @brief Load and store behaviour for one attachment of a render pass.
 */
type LoadStoreOp struct {
	LoadOp  vk.AttachmentLoadOp
	StoreOp vk.AttachmentStoreOp
}

/**
 * @brief Per-subpass attachment visibility: which render target attachment
 * indices the subpass reads as input attachments and which it writes as
 * outputs.
 */
type SubpassInfo struct {
	InputAttachments  []uint32
	OutputAttachments []uint32
}

/**
 * @brief A materialized render pass. Immutable once created; owned by the
 * resource cache and shared between recording sequences.
 */
type VulkanRenderPass struct {
	Handle vk.RenderPass

	// Color output count per subpass, used to size the color blend
	// attachment list on subpass transitions.
	colorOutputCounts []uint32
	// Number of attachments whose load op requires a clear value.
	clearAttachmentCount uint32
	subpassCount         uint32
}

func (vr *VulkanRenderPass) SubpassCount() uint32 {
	return vr.subpassCount
}

// ColorOutputCount returns the number of color outputs of the given subpass.
func (vr *VulkanRenderPass) ColorOutputCount(subpassIndex uint32) uint32 {
	if subpassIndex >= uint32(len(vr.colorOutputCounts)) {
		return 0
	}
	return vr.colorOutputCounts[subpassIndex]
}

// ClearAttachmentCount returns how many clear values BeginRenderPass expects.
func (vr *VulkanRenderPass) ClearAttachmentCount() uint32 {
	return vr.clearAttachmentCount
}

// NewVulkanRenderPass builds a render pass from the render target's
// attachment descriptions, the per-attachment load/store behaviour and the
// per-subpass visibility lists. A nil subpass list gets one default subpass
// writing every color attachment.
func NewVulkanRenderPass(context *VulkanContext, attachments []Attachment, loadStoreOps []LoadStoreOp, subpasses []SubpassInfo) (*VulkanRenderPass, error) {
	if len(subpasses) == 0 {
		outputs := make([]uint32, 0, len(attachments))
		for i, att := range attachments {
			if !IsDepthStencilFormat(att.Format) {
				outputs = append(outputs, uint32(i))
			}
		}
		subpasses = []SubpassInfo{{OutputAttachments: outputs}}
	}

	outRenderpass := &VulkanRenderPass{
		colorOutputCounts: make([]uint32, len(subpasses)),
		subpassCount:      uint32(len(subpasses)),
	}

	attachmentDescriptions := make([]vk.AttachmentDescription, len(attachments))
	for i, att := range attachments {
		description := vk.AttachmentDescription{
			Format:         att.Format,
			Samples:        att.Samples,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  att.InitialLayout,
			FinalLayout:    att.FinalLayout,
		}
		if i < len(loadStoreOps) {
			description.LoadOp = loadStoreOps[i].LoadOp
			description.StoreOp = loadStoreOps[i].StoreOp
			if IsDepthStencilFormat(att.Format) {
				description.StencilLoadOp = loadStoreOps[i].LoadOp
				description.StencilStoreOp = loadStoreOps[i].StoreOp
			}
		}
		if description.LoadOp == vk.AttachmentLoadOpClear {
			outRenderpass.clearAttachmentCount++
		}
		description.Deref()
		attachmentDescriptions[i] = description
	}

	subpassDescriptions := make([]vk.SubpassDescription, len(subpasses))
	for i, subpass := range subpasses {
		description := vk.SubpassDescription{
			PipelineBindPoint: vk.PipelineBindPointGraphics,
		}

		colorRefs := make([]vk.AttachmentReference, 0, len(subpass.OutputAttachments))
		var depthRef *vk.AttachmentReference
		for _, index := range subpass.OutputAttachments {
			if int(index) >= len(attachments) {
				err := fmt.Errorf("subpass %d references output attachment %d but the render target only has %d attachments", i, index, len(attachments))
				core.LogError(err.Error())
				return nil, err
			}
			if IsDepthStencilFormat(attachments[index].Format) {
				depthRef = &vk.AttachmentReference{
					Attachment: index,
					Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
				}
				depthRef.Deref()
				continue
			}
			colorRef := vk.AttachmentReference{
				Attachment: index,
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			}
			colorRef.Deref()
			colorRefs = append(colorRefs, colorRef)
		}

		inputRefs := make([]vk.AttachmentReference, 0, len(subpass.InputAttachments))
		for _, index := range subpass.InputAttachments {
			layout := vk.ImageLayoutShaderReadOnlyOptimal
			if int(index) < len(attachments) && IsDepthStencilFormat(attachments[index].Format) {
				layout = vk.ImageLayoutDepthStencilReadOnlyOptimal
			}
			inputRef := vk.AttachmentReference{
				Attachment: index,
				Layout:     layout,
			}
			inputRef.Deref()
			inputRefs = append(inputRefs, inputRef)
		}

		description.ColorAttachmentCount = uint32(len(colorRefs))
		description.PColorAttachments = colorRefs
		description.InputAttachmentCount = uint32(len(inputRefs))
		description.PInputAttachments = inputRefs
		description.PDepthStencilAttachment = depthRef
		description.Deref()

		subpassDescriptions[i] = description
		outRenderpass.colorOutputCounts[i] = uint32(len(colorRefs))
	}

	// Chain the subpasses together. Every transition waits for the previous
	// color output before reading it as an input attachment.
	dependencies := make([]vk.SubpassDependency, 0, len(subpasses))
	for i := 1; i < len(subpasses); i++ {
		dependency := vk.SubpassDependency{
			SrcSubpass:      uint32(i - 1),
			DstSubpass:      uint32(i),
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessInputAttachmentReadBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		}
		dependency.Deref()
		dependencies = append(dependencies, dependency)
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    uint32(len(subpassDescriptions)),
		PSubpasses:      subpassDescriptions,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}
	renderpassCreateInfo.Deref()

	var pRenderPass vk.RenderPass
	if err := lockPool.SafeCall(RenderpassManagement, func() error {
		if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &pRenderPass); res != vk.Success {
			err := core.NewVulkanError(int32(res), "failed to create render pass")
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}
	outRenderpass.Handle = pRenderPass

	return outRenderpass, nil
}

func (vr *VulkanRenderPass) Destroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}
