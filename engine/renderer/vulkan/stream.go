package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// CommandStream is the seam between state tracking and driver emission.
// The command buffer reconciles its tracked state, then writes the
// resulting low-level commands through this interface. The production
// implementation forwards straight to vkCmd*; tests substitute a recording
// stream.
type CommandStream interface {
	Begin(beginInfo *vk.CommandBufferBeginInfo) vk.Result
	End() vk.Result
	Reset(flags vk.CommandBufferResetFlags) vk.Result

	BeginRenderPass(beginInfo *vk.RenderPassBeginInfo, contents vk.SubpassContents)
	NextSubpass(contents vk.SubpassContents)
	EndRenderPass()

	BindPipeline(bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline)
	BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32)
	BindVertexBuffers(firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize)
	BindIndexBuffer(buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType)

	PushConstants(layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte)

	SetViewport(firstViewport uint32, viewports []vk.Viewport)
	SetScissor(firstScissor uint32, scissors []vk.Rect2D)
	SetLineWidth(lineWidth float32)
	SetDepthBias(constantFactor, clamp, slopeFactor float32)
	SetBlendConstants(blendConstants [4]float32)
	SetDepthBounds(minDepthBounds, maxDepthBounds float32)

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	DrawIndexedIndirect(buffer vk.Buffer, offset vk.DeviceSize, drawCount, stride uint32)
	Dispatch(groupCountX, groupCountY, groupCountZ uint32)
	DispatchIndirect(buffer vk.Buffer, offset vk.DeviceSize)

	UpdateBuffer(buffer vk.Buffer, offset vk.DeviceSize, data []byte)
	CopyBuffer(srcBuffer, dstBuffer vk.Buffer, regions []vk.BufferCopy)
	CopyImage(srcImage, dstImage vk.Image, regions []vk.ImageCopy)
	CopyBufferToImage(buffer vk.Buffer, image vk.Image, regions []vk.BufferImageCopy)
	BlitImage(srcImage, dstImage vk.Image, regions []vk.ImageBlit)

	PipelineBarrier(srcStageMask, dstStageMask vk.PipelineStageFlags, bufferBarriers []vk.BufferMemoryBarrier, imageBarriers []vk.ImageMemoryBarrier)
	ExecuteCommands(commandBuffers []vk.CommandBuffer)
}

// deviceStream emits onto a live vk.CommandBuffer. Raw calls go through the
// lock pool like every other driver call in this package.
type deviceStream struct {
	handle vk.CommandBuffer
}

func newDeviceStream(handle vk.CommandBuffer) *deviceStream {
	return &deviceStream{handle: handle}
}

func (s *deviceStream) safeCall(fn func()) {
	_ = lockPool.SafeCall(CommandBufferManagement, func() error {
		fn()
		return nil
	})
}

func (s *deviceStream) Begin(beginInfo *vk.CommandBufferBeginInfo) vk.Result {
	var res vk.Result
	s.safeCall(func() { res = vk.BeginCommandBuffer(s.handle, beginInfo) })
	return res
}

func (s *deviceStream) End() vk.Result {
	var res vk.Result
	s.safeCall(func() { res = vk.EndCommandBuffer(s.handle) })
	return res
}

func (s *deviceStream) Reset(flags vk.CommandBufferResetFlags) vk.Result {
	var res vk.Result
	s.safeCall(func() { res = vk.ResetCommandBuffer(s.handle, flags) })
	return res
}

func (s *deviceStream) BeginRenderPass(beginInfo *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	s.safeCall(func() { vk.CmdBeginRenderPass(s.handle, beginInfo, contents) })
}

func (s *deviceStream) NextSubpass(contents vk.SubpassContents) {
	s.safeCall(func() { vk.CmdNextSubpass(s.handle, contents) })
}

func (s *deviceStream) EndRenderPass() {
	s.safeCall(func() { vk.CmdEndRenderPass(s.handle) })
}

func (s *deviceStream) BindPipeline(bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	s.safeCall(func() { vk.CmdBindPipeline(s.handle, bindPoint, pipeline) })
}

func (s *deviceStream) BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	s.safeCall(func() {
		vk.CmdBindDescriptorSets(s.handle, bindPoint, layout, firstSet, uint32(len(sets)), sets, uint32(len(dynamicOffsets)), dynamicOffsets)
	})
}

func (s *deviceStream) BindVertexBuffers(firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	s.safeCall(func() {
		vk.CmdBindVertexBuffers(s.handle, firstBinding, uint32(len(buffers)), buffers, offsets)
	})
}

func (s *deviceStream) BindIndexBuffer(buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	s.safeCall(func() { vk.CmdBindIndexBuffer(s.handle, buffer, offset, indexType) })
}

func (s *deviceStream) PushConstants(layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	s.safeCall(func() {
		vk.CmdPushConstants(s.handle, layout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
	})
}

func (s *deviceStream) SetViewport(firstViewport uint32, viewports []vk.Viewport) {
	s.safeCall(func() { vk.CmdSetViewport(s.handle, firstViewport, uint32(len(viewports)), viewports) })
}

func (s *deviceStream) SetScissor(firstScissor uint32, scissors []vk.Rect2D) {
	s.safeCall(func() { vk.CmdSetScissor(s.handle, firstScissor, uint32(len(scissors)), scissors) })
}

func (s *deviceStream) SetLineWidth(lineWidth float32) {
	s.safeCall(func() { vk.CmdSetLineWidth(s.handle, lineWidth) })
}

func (s *deviceStream) SetDepthBias(constantFactor, clamp, slopeFactor float32) {
	s.safeCall(func() { vk.CmdSetDepthBias(s.handle, constantFactor, clamp, slopeFactor) })
}

func (s *deviceStream) SetBlendConstants(blendConstants [4]float32) {
	s.safeCall(func() { vk.CmdSetBlendConstants(s.handle, &blendConstants) })
}

func (s *deviceStream) SetDepthBounds(minDepthBounds, maxDepthBounds float32) {
	s.safeCall(func() { vk.CmdSetDepthBounds(s.handle, minDepthBounds, maxDepthBounds) })
}

func (s *deviceStream) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	s.safeCall(func() { vk.CmdDraw(s.handle, vertexCount, instanceCount, firstVertex, firstInstance) })
}

func (s *deviceStream) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	s.safeCall(func() {
		vk.CmdDrawIndexed(s.handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	})
}

func (s *deviceStream) DrawIndexedIndirect(buffer vk.Buffer, offset vk.DeviceSize, drawCount, stride uint32) {
	s.safeCall(func() { vk.CmdDrawIndexedIndirect(s.handle, buffer, offset, drawCount, stride) })
}

func (s *deviceStream) Dispatch(groupCountX, groupCountY, groupCountZ uint32) {
	s.safeCall(func() { vk.CmdDispatch(s.handle, groupCountX, groupCountY, groupCountZ) })
}

func (s *deviceStream) DispatchIndirect(buffer vk.Buffer, offset vk.DeviceSize) {
	s.safeCall(func() { vk.CmdDispatchIndirect(s.handle, buffer, offset) })
}

func (s *deviceStream) UpdateBuffer(buffer vk.Buffer, offset vk.DeviceSize, data []byte) {
	if len(data) == 0 {
		return
	}
	s.safeCall(func() {
		vk.CmdUpdateBuffer(s.handle, buffer, offset, vk.DeviceSize(len(data)), (*uint32)(unsafe.Pointer(&data[0])))
	})
}

func (s *deviceStream) CopyBuffer(srcBuffer, dstBuffer vk.Buffer, regions []vk.BufferCopy) {
	s.safeCall(func() { vk.CmdCopyBuffer(s.handle, srcBuffer, dstBuffer, uint32(len(regions)), regions) })
}

func (s *deviceStream) CopyImage(srcImage, dstImage vk.Image, regions []vk.ImageCopy) {
	s.safeCall(func() {
		vk.CmdCopyImage(s.handle, srcImage, vk.ImageLayoutTransferSrcOptimal,
			dstImage, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
	})
}

func (s *deviceStream) CopyBufferToImage(buffer vk.Buffer, image vk.Image, regions []vk.BufferImageCopy) {
	s.safeCall(func() {
		vk.CmdCopyBufferToImage(s.handle, buffer, image, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
	})
}

func (s *deviceStream) BlitImage(srcImage, dstImage vk.Image, regions []vk.ImageBlit) {
	s.safeCall(func() {
		vk.CmdBlitImage(s.handle, srcImage, vk.ImageLayoutTransferSrcOptimal,
			dstImage, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions, vk.FilterNearest)
	})
}

func (s *deviceStream) PipelineBarrier(srcStageMask, dstStageMask vk.PipelineStageFlags, bufferBarriers []vk.BufferMemoryBarrier, imageBarriers []vk.ImageMemoryBarrier) {
	s.safeCall(func() {
		vk.CmdPipelineBarrier(s.handle, srcStageMask, dstStageMask, 0,
			0, nil,
			uint32(len(bufferBarriers)), bufferBarriers,
			uint32(len(imageBarriers)), imageBarriers)
	})
}

func (s *deviceStream) ExecuteCommands(commandBuffers []vk.CommandBuffer) {
	s.safeCall(func() { vk.CmdExecuteCommands(s.handle, uint32(len(commandBuffers)), commandBuffers) })
}
