package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/magma/engine/core"
)

/**
 * @brief A materialized pipeline. Immutable; owned by the resource cache
 * and shared between recording sequences.
 */
type VulkanPipeline struct {
	Handle    vk.Pipeline
	BindPoint vk.PipelineBindPoint
}

func buildSpecializationInfo(state *SpecializationConstantState) []vk.SpecializationInfo {
	table := state.ConstantTable()
	if len(table) == 0 {
		return nil
	}

	constantIDs := maps.Keys(table)
	slices.Sort(constantIDs)

	entries := make([]vk.SpecializationMapEntry, 0, len(constantIDs))
	data := make([]byte, 0)
	for _, id := range constantIDs {
		blob := table[id]
		entry := vk.SpecializationMapEntry{
			ConstantID: id,
			Offset:     uint32(len(data)),
			Size:       uint64(len(blob)),
		}
		entry.Deref()
		entries = append(entries, entry)
		data = append(data, blob...)
	}

	info := vk.SpecializationInfo{
		MapEntryCount: uint32(len(entries)),
		PMapEntries:   entries,
		DataSize:      uint64(len(data)),
		PData:         unsafe.Pointer(&data[0]),
	}
	info.Deref()
	return []vk.SpecializationInfo{info}
}

func buildShaderStages(layout *VulkanPipelineLayout, specialization []vk.SpecializationInfo) []vk.PipelineShaderStageCreateInfo {
	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(layout.ShaderModules))
	for _, module := range layout.ShaderModules {
		stage := vk.PipelineShaderStageCreateInfo{
			SType:               vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:               module.Stage,
			Module:              module.Handle,
			PName:               VulkanSafeString(module.EntryPoint),
			PSpecializationInfo: specialization,
		}
		stage.Deref()
		stages = append(stages, stage)
	}
	return stages
}

// NewVulkanGraphicsPipeline materializes a graphics pipeline from the full
// pipeline state description. The state must already carry a render pass.
func NewVulkanGraphicsPipeline(context *VulkanContext, state *PipelineState) (*VulkanPipeline, error) {
	layout := state.PipelineLayout()
	if layout == nil {
		err := core.NewVulkanError(int32(vk.ErrorInitializationFailed), "cannot create a graphics pipeline without a pipeline layout")
		core.LogError(err.Error())
		return nil, err
	}

	specialization := buildSpecializationInfo(state.SpecializationConstantState())
	stages := buildShaderStages(layout, specialization)

	vertexInput := state.VertexInputState()
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(vertexInput.Bindings)),
		PVertexBindingDescriptions:      vertexInput.Bindings,
		VertexAttributeDescriptionCount: uint32(len(vertexInput.Attributes)),
		PVertexAttributeDescriptions:    vertexInput.Attributes,
	}
	vertexInputInfo.Deref()

	inputAssembly := state.InputAssemblyState()
	inputAssemblyInfo := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               inputAssembly.Topology,
		PrimitiveRestartEnable: vulkanBool(inputAssembly.PrimitiveRestartEnable),
	}
	inputAssemblyInfo.Deref()

	viewport := state.ViewportState()
	viewportInfo := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: viewport.ViewportCount,
		ScissorCount:  viewport.ScissorCount,
	}
	viewportInfo.Deref()

	rasterization := state.RasterizationState()
	rasterizationInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vulkanBool(rasterization.DepthClampEnable),
		RasterizerDiscardEnable: vulkanBool(rasterization.RasterizerDiscardEnable),
		PolygonMode:             rasterization.PolygonMode,
		CullMode:                rasterization.CullMode,
		FrontFace:               rasterization.FrontFace,
		DepthBiasEnable:         vulkanBool(rasterization.DepthBiasEnable),
		LineWidth:               1.0,
	}
	rasterizationInfo.Deref()

	multisample := state.MultisampleState()
	multisampleInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples:  multisample.RasterizationSamples,
		SampleShadingEnable:   vulkanBool(multisample.SampleShadingEnable),
		MinSampleShading:      multisample.MinSampleShading,
		AlphaToCoverageEnable: vulkanBool(multisample.AlphaToCoverageEnable),
		AlphaToOneEnable:      vulkanBool(multisample.AlphaToOneEnable),
	}
	if multisample.SampleMask != 0 {
		multisampleInfo.PSampleMask = []vk.SampleMask{multisample.SampleMask}
	}
	multisampleInfo.Deref()

	depthStencil := state.DepthStencilState()
	depthStencilInfo := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vulkanBool(depthStencil.DepthTestEnable),
		DepthWriteEnable:      vulkanBool(depthStencil.DepthWriteEnable),
		DepthCompareOp:        depthStencil.DepthCompareOp,
		DepthBoundsTestEnable: vulkanBool(depthStencil.DepthBoundsTestEnable),
		StencilTestEnable:     vulkanBool(depthStencil.StencilTestEnable),
		Front:                 vulkanStencilOpState(depthStencil.Front),
		Back:                  vulkanStencilOpState(depthStencil.Back),
	}
	depthStencilInfo.Deref()

	colorBlend := state.ColorBlendState()
	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(colorBlend.Attachments))
	for i, attachment := range colorBlend.Attachments {
		blendAttachment := vk.PipelineColorBlendAttachmentState{
			BlendEnable:         vulkanBool(attachment.BlendEnable),
			SrcColorBlendFactor: attachment.SrcColorBlendFactor,
			DstColorBlendFactor: attachment.DstColorBlendFactor,
			ColorBlendOp:        attachment.ColorBlendOp,
			SrcAlphaBlendFactor: attachment.SrcAlphaBlendFactor,
			DstAlphaBlendFactor: attachment.DstAlphaBlendFactor,
			AlphaBlendOp:        attachment.AlphaBlendOp,
			ColorWriteMask:      attachment.ColorWriteMask,
		}
		blendAttachment.Deref()
		blendAttachments[i] = blendAttachment
	}
	colorBlendInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vulkanBool(colorBlend.LogicOpEnable),
		LogicOp:         colorBlend.LogicOp,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}
	colorBlendInfo.Deref()

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
		vk.DynamicStateLineWidth,
		vk.DynamicStateDepthBias,
		vk.DynamicStateBlendConstants,
		vk.DynamicStateDepthBounds,
	}
	dynamicStateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}
	dynamicStateInfo.Deref()

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssemblyInfo,
		PViewportState:      &viewportInfo,
		PRasterizationState: &rasterizationInfo,
		PMultisampleState:   &multisampleInfo,
		PDepthStencilState:  &depthStencilInfo,
		PColorBlendState:    &colorBlendInfo,
		PDynamicState:       &dynamicStateInfo,
		Layout:              layout.Handle,
		RenderPass:          state.RenderPass().Handle,
		Subpass:             state.SubpassIndex(),
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}
	pipelineCreateInfo.Deref()

	pPipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreateGraphicsPipelines(
			context.Device.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			context.Allocator,
			pPipelines)
		if !VulkanResultIsSuccess(result) {
			err := core.NewVulkanError(int32(result), "vkCreateGraphicsPipelines failed with "+VulkanResultString(result, true))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	core.LogDebug("Graphics pipeline created for subpass %d", state.SubpassIndex())
	return &VulkanPipeline{Handle: pPipelines[0], BindPoint: vk.PipelineBindPointGraphics}, nil
}

// NewVulkanComputePipeline materializes a compute pipeline. Only the shader,
// the layout and the specialization constants participate; there is no
// render pass or subpass dependency.
func NewVulkanComputePipeline(context *VulkanContext, state *PipelineState) (*VulkanPipeline, error) {
	layout := state.PipelineLayout()
	if layout == nil {
		err := core.NewVulkanError(int32(vk.ErrorInitializationFailed), "cannot create a compute pipeline without a pipeline layout")
		core.LogError(err.Error())
		return nil, err
	}

	specialization := buildSpecializationInfo(state.SpecializationConstantState())
	stages := buildShaderStages(layout, specialization)
	if len(stages) != 1 {
		err := core.NewVulkanError(int32(vk.ErrorInitializationFailed), "a compute pipeline needs exactly one shader stage")
		core.LogError(err.Error())
		return nil, err
	}

	pipelineCreateInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		Stage:              stages[0],
		Layout:             layout.Handle,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}
	pipelineCreateInfo.Deref()

	pPipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreateComputePipelines(
			context.Device.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.ComputePipelineCreateInfo{pipelineCreateInfo},
			context.Allocator,
			pPipelines)
		if !VulkanResultIsSuccess(result) {
			err := core.NewVulkanError(int32(result), "vkCreateComputePipelines failed with "+VulkanResultString(result, true))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	core.LogDebug("Compute pipeline created")
	return &VulkanPipeline{Handle: pPipelines[0], BindPoint: vk.PipelineBindPointCompute}, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle != nil {
		_ = lockPool.SafeCall(PipelineManagement, func() error {
			vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
			pipeline.Handle = nil
			return nil
		})
	}
}

func vulkanBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func vulkanStencilOpState(state StencilOpState) vk.StencilOpState {
	out := vk.StencilOpState{
		FailOp:      state.FailOp,
		PassOp:      state.PassOp,
		DepthFailOp: state.DepthFailOp,
		CompareOp:   state.CompareOp,
	}
	out.Deref()
	return out
}
