package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestPipelineStateResetDefaults(t *testing.T) {
	var state PipelineState
	state.Reset()

	if state.IsDirty() {
		t.Error("freshly reset state is dirty")
	}
	if got := state.InputAssemblyState().Topology; got != vk.PrimitiveTopologyTriangleList {
		t.Errorf("default topology = %v, want triangle list", got)
	}
	if got := state.RasterizationState().PolygonMode; got != vk.PolygonModeFill {
		t.Errorf("default polygon mode = %v, want fill", got)
	}
	if got := state.ViewportState(); got.ViewportCount != 1 || got.ScissorCount != 1 {
		t.Errorf("default viewport state = %+v, want one viewport and one scissor", got)
	}
	if got := state.DepthStencilState(); !got.DepthTestEnable || !got.DepthWriteEnable {
		t.Errorf("default depth stencil state = %+v, want depth test and write enabled", got)
	}
	if state.PipelineLayout() != nil || state.RenderPass() != nil {
		t.Error("reset state still references a layout or render pass")
	}
	if state.SubpassIndex() != 0 {
		t.Errorf("subpass index = %d, want 0", state.SubpassIndex())
	}
}

func TestPipelineStateIdenticalSetDoesNotDirty(t *testing.T) {
	var state PipelineState
	state.Reset()

	state.SetInputAssemblyState(state.InputAssemblyState())
	state.SetRasterizationState(state.RasterizationState())
	state.SetViewportState(state.ViewportState())
	state.SetMultisampleState(state.MultisampleState())
	state.SetDepthStencilState(state.DepthStencilState())
	state.SetColorBlendState(state.ColorBlendState())
	state.SetVertexInputState(state.VertexInputState())
	state.SetSubpassIndex(state.SubpassIndex())

	if state.IsDirty() {
		t.Error("bit-identical Set* calls dirtied the state")
	}
}

func TestPipelineStateChangedSetDirties(t *testing.T) {
	// Layout and render pass setters compare pointer identity, so the
	// repeated mutation must pass the same instance.
	sharedLayout := &VulkanPipelineLayout{}
	sharedRenderPass := &VulkanRenderPass{}

	tests := []struct {
		name   string
		mutate func(*PipelineState)
	}{
		{"input assembly", func(s *PipelineState) {
			s.SetInputAssemblyState(InputAssemblyState{Topology: vk.PrimitiveTopologyPointList})
		}},
		{"rasterization", func(s *PipelineState) {
			ras := s.RasterizationState()
			ras.CullMode = vk.CullModeFlags(vk.CullModeNone)
			s.SetRasterizationState(ras)
		}},
		{"viewport", func(s *PipelineState) {
			s.SetViewportState(ViewportState{ViewportCount: 2, ScissorCount: 2})
		}},
		{"multisample", func(s *PipelineState) {
			ms := s.MultisampleState()
			ms.RasterizationSamples = vk.SampleCount4Bit
			s.SetMultisampleState(ms)
		}},
		{"depth stencil", func(s *PipelineState) {
			ds := s.DepthStencilState()
			ds.DepthWriteEnable = false
			s.SetDepthStencilState(ds)
		}},
		{"color blend", func(s *PipelineState) {
			s.SetColorBlendState(ColorBlendState{Attachments: []ColorBlendAttachmentState{DefaultColorBlendAttachmentState()}})
		}},
		{"vertex input", func(s *PipelineState) {
			s.SetVertexInputState(VertexInputState{
				Bindings: []vk.VertexInputBindingDescription{{Binding: 0, Stride: 16}},
			})
		}},
		{"subpass index", func(s *PipelineState) {
			s.SetSubpassIndex(1)
		}},
		{"pipeline layout", func(s *PipelineState) {
			s.SetPipelineLayout(sharedLayout)
		}},
		{"render pass", func(s *PipelineState) {
			s.SetRenderPass(sharedRenderPass)
		}},
		{"specialization constant", func(s *PipelineState) {
			s.SetSpecializationConstant(0, []byte{1, 2, 3, 4})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var state PipelineState
			state.Reset()

			tt.mutate(&state)
			if !state.IsDirty() {
				t.Error("mutation did not dirty the state")
			}

			state.ClearDirty()
			tt.mutate(&state)
			if state.IsDirty() {
				t.Error("repeating the identical mutation dirtied the state again")
			}
		})
	}
}

func TestSpecializationConstantStateResetClearsTable(t *testing.T) {
	var state SpecializationConstantState

	state.SetConstant(7, []byte{1, 2, 3, 4})
	// A flush clears the dirty bit without touching the table; a later
	// reset must still drop the constants.
	state.ClearDirty()

	state.Reset()

	if len(state.ConstantTable()) != 0 {
		t.Errorf("constant table after Reset = %v, want empty", state.ConstantTable())
	}

	var pipeline PipelineState
	pipeline.Reset()
	pipeline.SetSpecializationConstant(7, []byte{1, 2, 3, 4})
	pipeline.ClearDirty()
	pipeline.Reset()
	if len(pipeline.SpecializationConstantState().ConstantTable()) != 0 {
		t.Error("pipeline state reset kept stale specialization constants")
	}
}

func TestSpecializationConstantStateByteEquality(t *testing.T) {
	var state SpecializationConstantState

	state.SetConstant(3, []byte{1, 2, 3, 4})
	if !state.IsDirty() {
		t.Fatal("new constant did not dirty the state")
	}
	state.ClearDirty()

	state.SetConstant(3, []byte{1, 2, 3, 4})
	if state.IsDirty() {
		t.Error("identical constant bytes dirtied the state")
	}

	state.SetConstant(3, []byte{4, 3, 2, 1})
	if !state.IsDirty() {
		t.Error("changed constant bytes did not dirty the state")
	}
}

func TestSpecializationConstantDataIsCopied(t *testing.T) {
	var state SpecializationConstantState

	data := []byte{1, 2, 3, 4}
	state.SetConstant(0, data)
	data[0] = 99

	if got := state.ConstantTable()[0][0]; got != 1 {
		t.Errorf("constant data = %d, want the value at set time (1)", got)
	}
}
