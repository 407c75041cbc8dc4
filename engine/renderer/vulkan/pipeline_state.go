package vulkan

import (
	"bytes"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"
)

/**
 * @brief Vertex buffer layout: binding strides/rates plus attribute formats
 * and offsets.
 */
type VertexInputState struct {
	Bindings   []vk.VertexInputBindingDescription
	Attributes []vk.VertexInputAttributeDescription
}

type InputAssemblyState struct {
	Topology               vk.PrimitiveTopology
	PrimitiveRestartEnable bool
}

type RasterizationState struct {
	DepthClampEnable        bool
	RasterizerDiscardEnable bool
	PolygonMode             vk.PolygonMode
	CullMode                vk.CullModeFlags
	FrontFace               vk.FrontFace
	DepthBiasEnable         bool
}

// ViewportState only carries counts; the actual rectangles are dynamic
// state supplied through SetViewport/SetScissor.
type ViewportState struct {
	ViewportCount uint32
	ScissorCount  uint32
}

type MultisampleState struct {
	RasterizationSamples  vk.SampleCountFlagBits
	SampleShadingEnable   bool
	MinSampleShading      float32
	SampleMask            vk.SampleMask
	AlphaToCoverageEnable bool
	AlphaToOneEnable      bool
}

type StencilOpState struct {
	FailOp      vk.StencilOp
	PassOp      vk.StencilOp
	DepthFailOp vk.StencilOp
	CompareOp   vk.CompareOp
}

type DepthStencilState struct {
	DepthTestEnable       bool
	DepthWriteEnable      bool
	DepthCompareOp        vk.CompareOp
	DepthBoundsTestEnable bool
	StencilTestEnable     bool
	Front                 StencilOpState
	Back                  StencilOpState
}

type ColorBlendAttachmentState struct {
	BlendEnable         bool
	SrcColorBlendFactor vk.BlendFactor
	DstColorBlendFactor vk.BlendFactor
	ColorBlendOp        vk.BlendOp
	SrcAlphaBlendFactor vk.BlendFactor
	DstAlphaBlendFactor vk.BlendFactor
	AlphaBlendOp        vk.BlendOp
	ColorWriteMask      vk.ColorComponentFlags
}

type ColorBlendState struct {
	LogicOpEnable bool
	LogicOp       vk.LogicOp
	// One entry per color output of the active subpass. The command buffer
	// resizes this list on every subpass transition.
	Attachments []ColorBlendAttachmentState
}

// DefaultColorBlendAttachmentState is what newly exposed color outputs get
// when the attachment list grows on a subpass transition.
func DefaultColorBlendAttachmentState() ColorBlendAttachmentState {
	return ColorBlendAttachmentState{
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorZero,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
}

func vertexInputStateEqual(a, b VertexInputState) bool {
	return slices.Equal(a.Bindings, b.Bindings) && slices.Equal(a.Attributes, b.Attributes)
}

func colorBlendStateEqual(a, b ColorBlendState) bool {
	return a.LogicOpEnable == b.LogicOpEnable && a.LogicOp == b.LogicOp &&
		slices.Equal(a.Attachments, b.Attachments)
}

/**
 * @brief Per-constant-id specialization data with its own dirty marker.
 */
type SpecializationConstantState struct {
	dirty         bool
	constantTable map[uint32][]byte
}

func (s *SpecializationConstantState) Reset() {
	s.constantTable = nil
	s.dirty = false
}

func (s *SpecializationConstantState) IsDirty() bool {
	return s.dirty
}

func (s *SpecializationConstantState) ClearDirty() {
	s.dirty = false
}

func (s *SpecializationConstantState) SetConstant(constantID uint32, data []byte) {
	if existing, ok := s.constantTable[constantID]; ok && bytes.Equal(existing, data) {
		return
	}
	if s.constantTable == nil {
		s.constantTable = make(map[uint32][]byte)
	}
	s.constantTable[constantID] = slices.Clone(data)
	s.dirty = true
}

func (s *SpecializationConstantState) ConstantTable() map[uint32][]byte {
	return s.constantTable
}

/**
 * @brief The declarative description of the pipeline a recording sequence
 * wants bound. Pure state container: mutators compare before dirtying so a
 * redundant Set* never triggers a pipeline rebuild; the flush reads the
 * state and clears the dirty marker.
 */
type PipelineState struct {
	dirty bool

	pipelineLayout              *VulkanPipelineLayout
	renderPass                  *VulkanRenderPass
	specializationConstantState SpecializationConstantState

	vertexInputState   VertexInputState
	inputAssemblyState InputAssemblyState
	rasterizationState RasterizationState
	viewportState      ViewportState
	multisampleState   MultisampleState
	depthStencilState  DepthStencilState
	colorBlendState    ColorBlendState

	subpassIndex uint32
}

// Reset restores every field to its default and clears the dirty flag.
func (ps *PipelineState) Reset() {
	ps.ClearDirty()
	ps.pipelineLayout = nil
	ps.renderPass = nil
	ps.specializationConstantState.Reset()

	ps.vertexInputState = VertexInputState{}
	ps.inputAssemblyState = InputAssemblyState{
		Topology: vk.PrimitiveTopologyTriangleList,
	}
	ps.rasterizationState = RasterizationState{
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
	}
	ps.viewportState = ViewportState{
		ViewportCount: 1,
		ScissorCount:  1,
	}
	ps.multisampleState = MultisampleState{
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}
	ps.depthStencilState = DepthStencilState{
		DepthTestEnable:  true,
		DepthWriteEnable: true,
		DepthCompareOp:   vk.CompareOpGreater,
		Front: StencilOpState{
			FailOp:      vk.StencilOpReplace,
			PassOp:      vk.StencilOpReplace,
			DepthFailOp: vk.StencilOpReplace,
			CompareOp:   vk.CompareOpAlways,
		},
		Back: StencilOpState{
			FailOp:      vk.StencilOpReplace,
			PassOp:      vk.StencilOpReplace,
			DepthFailOp: vk.StencilOpReplace,
			CompareOp:   vk.CompareOpAlways,
		},
	}
	ps.colorBlendState = ColorBlendState{
		LogicOp: vk.LogicOpClear,
	}
	ps.subpassIndex = 0
}

func (ps *PipelineState) IsDirty() bool {
	return ps.dirty || ps.specializationConstantState.IsDirty()
}

func (ps *PipelineState) ClearDirty() {
	ps.dirty = false
	ps.specializationConstantState.ClearDirty()
}

func (ps *PipelineState) SetPipelineLayout(pipelineLayout *VulkanPipelineLayout) {
	if ps.pipelineLayout == pipelineLayout {
		return
	}
	ps.pipelineLayout = pipelineLayout
	ps.dirty = true
}

func (ps *PipelineState) SetRenderPass(renderPass *VulkanRenderPass) {
	if ps.renderPass == renderPass {
		return
	}
	ps.renderPass = renderPass
	ps.dirty = true
}

func (ps *PipelineState) SetSpecializationConstant(constantID uint32, data []byte) {
	ps.specializationConstantState.SetConstant(constantID, data)
}

func (ps *PipelineState) SetVertexInputState(state VertexInputState) {
	if vertexInputStateEqual(ps.vertexInputState, state) {
		return
	}
	ps.vertexInputState = state
	ps.dirty = true
}

func (ps *PipelineState) SetInputAssemblyState(state InputAssemblyState) {
	if ps.inputAssemblyState == state {
		return
	}
	ps.inputAssemblyState = state
	ps.dirty = true
}

func (ps *PipelineState) SetRasterizationState(state RasterizationState) {
	if ps.rasterizationState == state {
		return
	}
	ps.rasterizationState = state
	ps.dirty = true
}

func (ps *PipelineState) SetViewportState(state ViewportState) {
	if ps.viewportState == state {
		return
	}
	ps.viewportState = state
	ps.dirty = true
}

func (ps *PipelineState) SetMultisampleState(state MultisampleState) {
	if ps.multisampleState == state {
		return
	}
	ps.multisampleState = state
	ps.dirty = true
}

func (ps *PipelineState) SetDepthStencilState(state DepthStencilState) {
	if ps.depthStencilState == state {
		return
	}
	ps.depthStencilState = state
	ps.dirty = true
}

func (ps *PipelineState) SetColorBlendState(state ColorBlendState) {
	if colorBlendStateEqual(ps.colorBlendState, state) {
		return
	}
	ps.colorBlendState = state
	ps.dirty = true
}

func (ps *PipelineState) SetSubpassIndex(subpassIndex uint32) {
	if ps.subpassIndex == subpassIndex {
		return
	}
	ps.subpassIndex = subpassIndex
	ps.dirty = true
}

func (ps *PipelineState) PipelineLayout() *VulkanPipelineLayout {
	return ps.pipelineLayout
}

func (ps *PipelineState) RenderPass() *VulkanRenderPass {
	return ps.renderPass
}

func (ps *PipelineState) SpecializationConstantState() *SpecializationConstantState {
	return &ps.specializationConstantState
}

func (ps *PipelineState) VertexInputState() VertexInputState {
	return ps.vertexInputState
}

func (ps *PipelineState) InputAssemblyState() InputAssemblyState {
	return ps.inputAssemblyState
}

func (ps *PipelineState) RasterizationState() RasterizationState {
	return ps.rasterizationState
}

func (ps *PipelineState) ViewportState() ViewportState {
	return ps.viewportState
}

func (ps *PipelineState) MultisampleState() MultisampleState {
	return ps.multisampleState
}

func (ps *PipelineState) DepthStencilState() DepthStencilState {
	return ps.depthStencilState
}

func (ps *PipelineState) ColorBlendState() ColorBlendState {
	return ps.colorBlendState
}

func (ps *PipelineState) SubpassIndex() uint32 {
	return ps.subpassIndex
}
