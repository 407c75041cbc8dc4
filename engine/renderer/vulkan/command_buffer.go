package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/magma/engine/core"
)

type CommandBufferState int

const (
	// The buffer was moved from and owns no handle anymore.
	CommandBufferStateInvalid CommandBufferState = iota
	CommandBufferStateInitial
	CommandBufferStateRecording
	CommandBufferStateExecutable
)

func (s CommandBufferState) String() string {
	switch s {
	case CommandBufferStateInitial:
		return "initial"
	case CommandBufferStateRecording:
		return "recording"
	case CommandBufferStateExecutable:
		return "executable"
	}
	return "invalid"
}

/**
 * @brief The render pass and framebuffer a recording sequence currently
 * draws into. Both are cache-owned references.
 */
type RenderPassBinding struct {
	RenderPass  *VulkanRenderPass
	Framebuffer *VulkanFramebuffer
}

/**
 * @brief A command buffer that keeps track of the pipeline and resource
 * binding state declared so far and lazily materializes pipelines and
 * descriptor sets from the resource cache right before each draw or
 * dispatch. Not safe for concurrent use; one goroutine records at a time.
 */
type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	Level  vk.CommandBufferLevel

	context *VulkanContext
	pool    *VulkanCommandPool
	stream  CommandStream
	state   CommandBufferState

	pipelineState        PipelineState
	resourceBindingState ResourceBindingState
	// Descriptor set layout bound at each set index since the last state
	// reset. Compared by handle identity against the active pipeline layout
	// to detect sets that must be rebound after a layout swap.
	descriptorSetLayoutState map[uint32]*VulkanDescriptorSetLayout

	currentRenderPass RenderPassBinding
}

// NewVulkanCommandBuffer allocates one command buffer from the pool.
func NewVulkanCommandBuffer(context *VulkanContext, pool *VulkanCommandPool, level vk.CommandBufferLevel) (*VulkanCommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool.Handle,
		CommandBufferCount: 1,
		Level:              level,
	}
	allocateInfo.Deref()

	handles := make([]vk.CommandBuffer, 1)
	if err := lockPool.SafeCall(CommandBufferManagement, func() error {
		if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			err := core.NewVulkanError(int32(res), "failed to allocate command buffer")
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	outCommandBuffer := &VulkanCommandBuffer{
		Handle:  handles[0],
		Level:   level,
		context: context,
		pool:    pool,
		stream:  newDeviceStream(handles[0]),
		state:   CommandBufferStateInitial,
	}
	outCommandBuffer.pipelineState.Reset()

	return outCommandBuffer, nil
}

func (cb *VulkanCommandBuffer) State() CommandBufferState {
	return cb.state
}

func (cb *VulkanCommandBuffer) IsRecording() bool {
	return cb.state == CommandBufferStateRecording
}

// Move transfers ownership of the underlying handle and all tracked state
// to a fresh wrapper, so a buffer moved mid-recording keeps its pipeline
// layout, bindings and render pass. The receiver becomes invalid and
// rejects all further recording.
func (cb *VulkanCommandBuffer) Move() *VulkanCommandBuffer {
	moved := &VulkanCommandBuffer{
		Handle:                   cb.Handle,
		Level:                    cb.Level,
		context:                  cb.context,
		pool:                     cb.pool,
		stream:                   cb.stream,
		state:                    cb.state,
		pipelineState:            cb.pipelineState,
		resourceBindingState:     cb.resourceBindingState,
		descriptorSetLayoutState: cb.descriptorSetLayoutState,
		currentRenderPass:        cb.currentRenderPass,
	}

	cb.Handle = nil
	cb.stream = nil
	cb.state = CommandBufferStateInvalid
	cb.resourceBindingState = ResourceBindingState{}
	cb.descriptorSetLayoutState = nil
	cb.currentRenderPass = RenderPassBinding{}

	return moved
}

// Begin opens a recording sequence and resets all tracked state. Secondary
// buffers inherit the render pass, framebuffer and subpass index of the
// primary buffer they will be executed from.
func (cb *VulkanCommandBuffer) Begin(flags vk.CommandBufferUsageFlags, primaryCommandBuffer *VulkanCommandBuffer) error {
	if cb.state == CommandBufferStateInvalid {
		core.LogError("cannot begin an invalidated command buffer")
		return core.ErrInvalidCommandBuffer
	}
	if cb.IsRecording() {
		core.LogError("command buffer is already recording, call End before beginning again")
		return core.ErrNotReady
	}

	cb.state = CommandBufferStateRecording

	cb.pipelineState.Reset()
	cb.resourceBindingState.Reset()
	cb.descriptorSetLayoutState = nil
	cb.currentRenderPass = RenderPassBinding{}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}

	if cb.Level == vk.CommandBufferLevelSecondary {
		if primaryCommandBuffer == nil {
			err := fmt.Errorf("a primary command buffer must be provided when beginning a secondary one")
			core.LogError(err.Error())
			cb.state = CommandBufferStateInitial
			return err
		}

		cb.currentRenderPass = primaryCommandBuffer.currentRenderPass
		cb.pipelineState.SetSubpassIndex(primaryCommandBuffer.pipelineState.SubpassIndex())

		inheritance := vk.CommandBufferInheritanceInfo{
			SType:   vk.StructureTypeCommandBufferInheritanceInfo,
			Subpass: cb.pipelineState.SubpassIndex(),
		}
		if cb.currentRenderPass.RenderPass != nil {
			inheritance.RenderPass = cb.currentRenderPass.RenderPass.Handle
		}
		if cb.currentRenderPass.Framebuffer != nil {
			inheritance.Framebuffer = cb.currentRenderPass.Framebuffer.Handle
		}
		inheritance.Deref()

		beginInfo.PInheritanceInfo = []vk.CommandBufferInheritanceInfo{inheritance}
	}
	beginInfo.Deref()

	if res := cb.stream.Begin(&beginInfo); res != vk.Success {
		cb.state = CommandBufferStateInitial
		err := core.NewVulkanError(int32(res), "failed to begin command buffer")
		core.LogError(err.Error())
		return err
	}

	return nil
}

// End closes the recording sequence and makes the buffer executable.
func (cb *VulkanCommandBuffer) End() error {
	if !cb.IsRecording() {
		core.LogError("command buffer is not recording, call Begin before End")
		return core.ErrNotReady
	}

	if res := cb.stream.End(); res != vk.Success {
		err := core.NewVulkanError(int32(res), "failed to end command buffer")
		core.LogError(err.Error())
		return err
	}

	cb.state = CommandBufferStateExecutable

	return nil
}

// Reset returns the buffer to the initial state. The mode must match the
// one the owning pool was created with; only ResetModeIndividually touches
// the Vulkan handle, the other modes are reset at the pool level.
func (cb *VulkanCommandBuffer) Reset(resetMode ResetMode) error {
	if cb.state == CommandBufferStateInvalid {
		return core.ErrInvalidCommandBuffer
	}
	if resetMode != cb.pool.ResetMode() {
		err := fmt.Errorf("command buffer reset mode %d does not match pool reset mode %d", resetMode, cb.pool.ResetMode())
		core.LogError(err.Error())
		return err
	}

	cb.state = CommandBufferStateInitial

	if resetMode == ResetModeIndividually {
		if res := cb.stream.Reset(vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)); res != vk.Success {
			err := core.NewVulkanError(int32(res), "failed to reset command buffer")
			core.LogError(err.Error())
			return err
		}
	}

	return nil
}

// BeginRenderPass resolves a render pass and framebuffer for the target
// from the resource cache and starts it. All tracked state is reset; the
// color blend attachment list is sized to the first subpass.
func (cb *VulkanCommandBuffer) BeginRenderPass(renderTarget *RenderTarget, loadStoreOps []LoadStoreOp, clearValues []vk.ClearValue, subpasses []SubpassInfo, contents vk.SubpassContents) error {
	cb.pipelineState.Reset()
	cb.resourceBindingState.Reset()
	cb.descriptorSetLayoutState = nil

	renderPass, err := cb.context.ResourceCache.RequestRenderPass(renderTarget.Attachments, loadStoreOps, subpasses)
	if err != nil {
		return err
	}
	framebuffer, err := cb.context.ResourceCache.RequestFramebuffer(renderTarget, renderPass)
	if err != nil {
		return err
	}

	if uint32(len(clearValues)) != renderPass.ClearAttachmentCount() {
		err := fmt.Errorf("render pass expects %d clear values, got %d", renderPass.ClearAttachmentCount(), len(clearValues))
		core.LogError(err.Error())
		return err
	}

	cb.currentRenderPass.RenderPass = renderPass
	cb.currentRenderPass.Framebuffer = framebuffer

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass.Handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Extent: renderTarget.Extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	beginInfo.Deref()

	cb.stream.BeginRenderPass(&beginInfo, contents)

	cb.resizeBlendAttachments()

	return nil
}

// NextSubpass advances to the next subpass, resizing the blend attachment
// list to it and dropping every descriptor binding of the previous one.
func (cb *VulkanCommandBuffer) NextSubpass() {
	cb.pipelineState.SetSubpassIndex(cb.pipelineState.SubpassIndex() + 1)

	cb.resizeBlendAttachments()

	cb.resourceBindingState.Reset()
	cb.descriptorSetLayoutState = nil

	cb.stream.NextSubpass(vk.SubpassContentsInline)
}

func (cb *VulkanCommandBuffer) EndRenderPass() {
	cb.stream.EndRenderPass()
	cb.currentRenderPass = RenderPassBinding{}
}

// resizeBlendAttachments matches the color blend attachment list to the
// color output count of the active subpass, reusing surviving entries and
// filling new slots with the default attachment state.
func (cb *VulkanCommandBuffer) resizeBlendAttachments() {
	if cb.currentRenderPass.RenderPass == nil {
		return
	}

	count := cb.currentRenderPass.RenderPass.ColorOutputCount(cb.pipelineState.SubpassIndex())
	blendState := cb.pipelineState.ColorBlendState()

	attachments := make([]ColorBlendAttachmentState, count)
	for i := range attachments {
		if i < len(blendState.Attachments) {
			attachments[i] = blendState.Attachments[i]
		} else {
			attachments[i] = DefaultColorBlendAttachmentState()
		}
	}
	blendState.Attachments = attachments

	cb.pipelineState.SetColorBlendState(blendState)
}

// ExecuteCommands replays previously recorded secondary buffers into this
// primary one.
func (cb *VulkanCommandBuffer) ExecuteCommands(secondaryCommandBuffers []*VulkanCommandBuffer) {
	handles := make([]vk.CommandBuffer, len(secondaryCommandBuffers))
	for i, secondary := range secondaryCommandBuffers {
		handles[i] = secondary.Handle
	}
	cb.stream.ExecuteCommands(handles)
}

func (cb *VulkanCommandBuffer) CurrentRenderPass() RenderPassBinding {
	return cb.currentRenderPass
}

func (cb *VulkanCommandBuffer) BindPipelineLayout(pipelineLayout *VulkanPipelineLayout) {
	cb.pipelineState.SetPipelineLayout(pipelineLayout)
}

func (cb *VulkanCommandBuffer) SetSpecializationConstant(constantID uint32, data []byte) {
	cb.pipelineState.SetSpecializationConstant(constantID, data)
}

// PushConstants writes the data through the declared push constant range
// covering it. When no range covers the write it is skipped with a warning
// instead of tripping the validation layers.
func (cb *VulkanCommandBuffer) PushConstants(offset uint32, data []byte) {
	pipelineLayout := cb.pipelineState.PipelineLayout()
	if pipelineLayout == nil {
		core.LogWarn("push constants recorded before a pipeline layout was bound, skipping")
		return
	}

	shaderStage := pipelineLayout.PushConstantRangeStage(offset, uint32(len(data)))
	if shaderStage == 0 {
		core.LogWarn("push constant range [%d, %d] not found", offset, len(data))
		return
	}

	cb.stream.PushConstants(pipelineLayout.Handle, shaderStage, offset, data)
}

func (cb *VulkanCommandBuffer) BindBuffer(buffer *VulkanBuffer, offset, bindingRange vk.DeviceSize, set, binding, arrayElement uint32) {
	cb.resourceBindingState.BindBuffer(buffer, offset, bindingRange, set, binding, arrayElement)
}

func (cb *VulkanCommandBuffer) BindImage(imageView *VulkanImageView, sampler *VulkanSampler, set, binding, arrayElement uint32) {
	cb.resourceBindingState.BindImage(imageView, sampler, set, binding, arrayElement)
}

func (cb *VulkanCommandBuffer) BindInput(imageView *VulkanImageView, set, binding, arrayElement uint32) {
	cb.resourceBindingState.BindInput(imageView, set, binding, arrayElement)
}

func (cb *VulkanCommandBuffer) BindVertexBuffers(firstBinding uint32, buffers []*VulkanBuffer, offsets []vk.DeviceSize) {
	handles := make([]vk.Buffer, len(buffers))
	for i, buffer := range buffers {
		handles[i] = buffer.Handle
	}
	cb.stream.BindVertexBuffers(firstBinding, handles, offsets)
}

func (cb *VulkanCommandBuffer) BindIndexBuffer(buffer *VulkanBuffer, offset vk.DeviceSize, indexType vk.IndexType) {
	cb.stream.BindIndexBuffer(buffer.Handle, offset, indexType)
}

func (cb *VulkanCommandBuffer) SetVertexInputState(state VertexInputState) {
	cb.pipelineState.SetVertexInputState(state)
}

func (cb *VulkanCommandBuffer) SetInputAssemblyState(state InputAssemblyState) {
	cb.pipelineState.SetInputAssemblyState(state)
}

func (cb *VulkanCommandBuffer) SetRasterizationState(state RasterizationState) {
	cb.pipelineState.SetRasterizationState(state)
}

func (cb *VulkanCommandBuffer) SetViewportState(state ViewportState) {
	cb.pipelineState.SetViewportState(state)
}

func (cb *VulkanCommandBuffer) SetMultisampleState(state MultisampleState) {
	cb.pipelineState.SetMultisampleState(state)
}

func (cb *VulkanCommandBuffer) SetDepthStencilState(state DepthStencilState) {
	cb.pipelineState.SetDepthStencilState(state)
}

func (cb *VulkanCommandBuffer) SetColorBlendState(state ColorBlendState) {
	cb.pipelineState.SetColorBlendState(state)
}

func (cb *VulkanCommandBuffer) SetViewport(firstViewport uint32, viewports []vk.Viewport) {
	cb.stream.SetViewport(firstViewport, viewports)
}

func (cb *VulkanCommandBuffer) SetScissor(firstScissor uint32, scissors []vk.Rect2D) {
	cb.stream.SetScissor(firstScissor, scissors)
}

func (cb *VulkanCommandBuffer) SetLineWidth(lineWidth float32) {
	cb.stream.SetLineWidth(lineWidth)
}

func (cb *VulkanCommandBuffer) SetDepthBias(constantFactor, clamp, slopeFactor float32) {
	cb.stream.SetDepthBias(constantFactor, clamp, slopeFactor)
}

func (cb *VulkanCommandBuffer) SetBlendConstants(blendConstants [4]float32) {
	cb.stream.SetBlendConstants(blendConstants)
}

func (cb *VulkanCommandBuffer) SetDepthBounds(minDepthBounds, maxDepthBounds float32) {
	cb.stream.SetDepthBounds(minDepthBounds, maxDepthBounds)
}

func (cb *VulkanCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if err := cb.flushPipelineState(vk.PipelineBindPointGraphics); err != nil {
		return err
	}
	if err := cb.flushDescriptorState(vk.PipelineBindPointGraphics); err != nil {
		return err
	}
	cb.stream.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

func (cb *VulkanCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	if err := cb.flushPipelineState(vk.PipelineBindPointGraphics); err != nil {
		return err
	}
	if err := cb.flushDescriptorState(vk.PipelineBindPointGraphics); err != nil {
		return err
	}
	cb.stream.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

func (cb *VulkanCommandBuffer) DrawIndexedIndirect(buffer *VulkanBuffer, offset vk.DeviceSize, drawCount, stride uint32) error {
	if err := cb.flushPipelineState(vk.PipelineBindPointGraphics); err != nil {
		return err
	}
	if err := cb.flushDescriptorState(vk.PipelineBindPointGraphics); err != nil {
		return err
	}
	cb.stream.DrawIndexedIndirect(buffer.Handle, offset, drawCount, stride)
	return nil
}

func (cb *VulkanCommandBuffer) Dispatch(groupCountX, groupCountY, groupCountZ uint32) error {
	if err := cb.flushPipelineState(vk.PipelineBindPointCompute); err != nil {
		return err
	}
	if err := cb.flushDescriptorState(vk.PipelineBindPointCompute); err != nil {
		return err
	}
	cb.stream.Dispatch(groupCountX, groupCountY, groupCountZ)
	return nil
}

func (cb *VulkanCommandBuffer) DispatchIndirect(buffer *VulkanBuffer, offset vk.DeviceSize) error {
	if err := cb.flushPipelineState(vk.PipelineBindPointCompute); err != nil {
		return err
	}
	if err := cb.flushDescriptorState(vk.PipelineBindPointCompute); err != nil {
		return err
	}
	cb.stream.DispatchIndirect(buffer.Handle, offset)
	return nil
}

func (cb *VulkanCommandBuffer) UpdateBuffer(buffer *VulkanBuffer, offset vk.DeviceSize, data []byte) {
	cb.stream.UpdateBuffer(buffer.Handle, offset, data)
}

func (cb *VulkanCommandBuffer) CopyBuffer(srcBuffer, dstBuffer *VulkanBuffer, size vk.DeviceSize) {
	region := vk.BufferCopy{Size: size}
	region.Deref()
	cb.stream.CopyBuffer(srcBuffer.Handle, dstBuffer.Handle, []vk.BufferCopy{region})
}

func (cb *VulkanCommandBuffer) CopyImage(srcImage, dstImage *VulkanImage, regions []vk.ImageCopy) {
	cb.stream.CopyImage(srcImage.Handle, dstImage.Handle, regions)
}

func (cb *VulkanCommandBuffer) CopyBufferToImage(buffer *VulkanBuffer, image *VulkanImage, regions []vk.BufferImageCopy) {
	cb.stream.CopyBufferToImage(buffer.Handle, image.Handle, regions)
}

func (cb *VulkanCommandBuffer) BlitImage(srcImage, dstImage *VulkanImage, regions []vk.ImageBlit) {
	cb.stream.BlitImage(srcImage.Handle, dstImage.Handle, regions)
}

// ImageMemoryBarrier records a layout transition covering the subresource
// range of the view.
func (cb *VulkanCommandBuffer) ImageMemoryBarrier(imageView *VulkanImageView, barrier ImageMemoryBarrier) {
	imageBarrier := vk.ImageMemoryBarrier{
		SType:            vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:    barrier.SrcAccessMask,
		DstAccessMask:    barrier.DstAccessMask,
		OldLayout:        barrier.OldLayout,
		NewLayout:        barrier.NewLayout,
		Image:            imageView.Image.Handle,
		SubresourceRange: imageView.SubresourceRange,
	}
	imageBarrier.Deref()

	cb.stream.PipelineBarrier(barrier.SrcStageMask, barrier.DstStageMask, nil, []vk.ImageMemoryBarrier{imageBarrier})
}

func (cb *VulkanCommandBuffer) BufferMemoryBarrier(buffer *VulkanBuffer, offset, size vk.DeviceSize, barrier BufferMemoryBarrier) {
	bufferBarrier := vk.BufferMemoryBarrier{
		SType:         vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask: barrier.SrcAccessMask,
		DstAccessMask: barrier.DstAccessMask,
		Buffer:        buffer.Handle,
		Offset:        offset,
		Size:          size,
	}
	bufferBarrier.Deref()

	cb.stream.PipelineBarrier(barrier.SrcStageMask, barrier.DstStageMask, []vk.BufferMemoryBarrier{bufferBarrier}, nil)
}

// flushPipelineState materializes and binds a pipeline when the declared
// pipeline state changed since the last flush. A clean state is a no-op, so
// back-to-back draws bind nothing.
func (cb *VulkanCommandBuffer) flushPipelineState(pipelineBindPoint vk.PipelineBindPoint) error {
	// Stamp the active render pass before the dirty check so that a flush
	// leaves the state clean and the next draw with unchanged state skips.
	if pipelineBindPoint == vk.PipelineBindPointGraphics {
		cb.pipelineState.SetRenderPass(cb.currentRenderPass.RenderPass)
	}

	if !cb.pipelineState.IsDirty() {
		return nil
	}

	cb.pipelineState.ClearDirty()

	var pipeline *VulkanPipeline
	var err error

	switch pipelineBindPoint {
	case vk.PipelineBindPointGraphics:
		pipeline, err = cb.context.ResourceCache.RequestGraphicsPipeline(&cb.pipelineState)
	case vk.PipelineBindPointCompute:
		pipeline, err = cb.context.ResourceCache.RequestComputePipeline(&cb.pipelineState)
	default:
		core.LogFatal("only graphics and compute pipeline bind points are supported")
		return core.ErrUnknown
	}
	if err != nil {
		return err
	}

	cb.stream.BindPipeline(pipelineBindPoint, pipeline.Handle)

	return nil
}

// flushDescriptorState materializes and binds descriptor sets for every set
// whose bindings changed, or whose layout differs from the one it was last
// bound with. Sets absent from the active pipeline layout are forgotten.
func (cb *VulkanCommandBuffer) flushDescriptorState(pipelineBindPoint vk.PipelineBindPoint) error {
	pipelineLayout := cb.pipelineState.PipelineLayout()
	if pipelineLayout == nil {
		return nil
	}

	// A set bound with a different layout than the active pipeline layout
	// declares must be rebound even when its resources did not change.
	updateSets := make(map[uint32]bool)
	for setIndex := range pipelineLayout.SetBindings() {
		if previousLayout, ok := cb.descriptorSetLayoutState[setIndex]; ok {
			if previousLayout.Handle != pipelineLayout.SetLayout(setIndex).Handle {
				updateSets[setIndex] = true
			}
		}
	}

	for setIndex := range cb.descriptorSetLayoutState {
		if !pipelineLayout.HasSetLayout(setIndex) {
			delete(cb.descriptorSetLayoutState, setIndex)
		}
	}

	if !cb.resourceBindingState.IsDirty() && len(updateSets) == 0 {
		return nil
	}

	cb.resourceBindingState.ClearDirty()

	setBindings := cb.resourceBindingState.SetBindings()
	setIndices := maps.Keys(setBindings)
	slices.Sort(setIndices)

	for _, setIndex := range setIndices {
		resourceSet := setBindings[setIndex]

		if !resourceSet.IsDirty() && !updateSets[setIndex] {
			continue
		}

		cb.resourceBindingState.ClearSetDirty(setIndex)

		if !pipelineLayout.HasSetLayout(setIndex) {
			continue
		}

		descriptorSetLayout := pipelineLayout.SetLayout(setIndex)
		if cb.descriptorSetLayoutState == nil {
			cb.descriptorSetLayoutState = make(map[uint32]*VulkanDescriptorSetLayout)
		}
		cb.descriptorSetLayoutState[setIndex] = descriptorSetLayout

		bufferInfos := make(BindingMap[vk.DescriptorBufferInfo])
		imageInfos := make(BindingMap[vk.DescriptorImageInfo])
		var dynamicOffsets []uint32

		forEachBindingSorted(resourceSet.ResourceBindings(), func(bindingIndex, arrayElement uint32, resourceInfo ResourceInfo) {
			bindingInfo, ok := descriptorSetLayout.LayoutBinding(bindingIndex)
			if !ok {
				return
			}

			switch {
			case resourceInfo.Buffer != nil && IsBufferDescriptorType(bindingInfo.DescriptorType):
				bufferInfo := vk.DescriptorBufferInfo{
					Buffer: resourceInfo.Buffer.Handle,
					Offset: resourceInfo.Offset,
					Range:  resourceInfo.Range,
				}

				// Dynamic descriptors take their offset at bind time; the
				// descriptor itself is written with offset zero.
				if IsDynamicBufferDescriptorType(bindingInfo.DescriptorType) {
					dynamicOffsets = append(dynamicOffsets, uint32(bufferInfo.Offset))
					bufferInfo.Offset = 0
				}

				bufferInfo.Deref()
				if bufferInfos[bindingIndex] == nil {
					bufferInfos[bindingIndex] = make(map[uint32]vk.DescriptorBufferInfo)
				}
				bufferInfos[bindingIndex][arrayElement] = bufferInfo

			case resourceInfo.ImageView != nil:
				imageInfo := vk.DescriptorImageInfo{
					ImageView: resourceInfo.ImageView.Handle,
				}
				if resourceInfo.Sampler != nil {
					imageInfo.Sampler = resourceInfo.Sampler.Handle
				}

				switch bindingInfo.DescriptorType {
				case vk.DescriptorTypeCombinedImageSampler, vk.DescriptorTypeInputAttachment:
					if IsDepthStencilFormat(resourceInfo.ImageView.Format) {
						imageInfo.ImageLayout = vk.ImageLayoutDepthStencilReadOnlyOptimal
					} else {
						imageInfo.ImageLayout = vk.ImageLayoutShaderReadOnlyOptimal
					}
				case vk.DescriptorTypeStorageImage:
					imageInfo.ImageLayout = vk.ImageLayoutGeneral
				default:
					return
				}

				imageInfo.Deref()
				if imageInfos[bindingIndex] == nil {
					imageInfos[bindingIndex] = make(map[uint32]vk.DescriptorImageInfo)
				}
				imageInfos[bindingIndex][arrayElement] = imageInfo

			case resourceInfo.Sampler != nil:
				core.LogWarn("sampler-only binding %d.%d is not supported, skipping", setIndex, bindingIndex)
			}
		})

		descriptorSet, err := cb.context.ResourceCache.RequestDescriptorSet(descriptorSetLayout, bufferInfos, imageInfos)
		if err != nil {
			return err
		}

		cb.stream.BindDescriptorSets(pipelineBindPoint,
			pipelineLayout.Handle,
			setIndex,
			[]vk.DescriptorSet{descriptorSet.Handle},
			dynamicOffsets)
	}

	return nil
}
