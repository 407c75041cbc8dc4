package vulkan

import (
	"testing"
)

func TestResourceBindingStateBindDirties(t *testing.T) {
	var state ResourceBindingState
	buffer := &VulkanBuffer{TotalSize: 256}

	state.BindBuffer(buffer, 0, 256, 0, 1, 0)

	if !state.IsDirty() {
		t.Error("binding a buffer did not dirty the state")
	}
	resourceSet := state.SetBindings()[0]
	if resourceSet == nil || !resourceSet.IsDirty() {
		t.Error("binding a buffer did not dirty its set")
	}

	info := resourceSet.ResourceBindings()[1][0]
	if info.Buffer != buffer || info.Range != 256 {
		t.Errorf("stored resource = %+v, want the bound buffer", info)
	}
}

func TestResourceBindingStateIdenticalRebindStaysClean(t *testing.T) {
	var state ResourceBindingState
	buffer := &VulkanBuffer{TotalSize: 256}

	state.BindBuffer(buffer, 16, 64, 0, 1, 0)
	state.ClearDirty()
	state.SetBindings()[0].ClearDirty()

	state.BindBuffer(buffer, 16, 64, 0, 1, 0)

	if state.IsDirty() {
		t.Error("rebinding an identical resource dirtied the state")
	}
	if state.SetBindings()[0].IsDirty() {
		t.Error("rebinding an identical resource dirtied its set")
	}
}

func TestResourceBindingStateChangedOffsetDirties(t *testing.T) {
	var state ResourceBindingState
	buffer := &VulkanBuffer{TotalSize: 256}

	state.BindBuffer(buffer, 16, 64, 0, 1, 0)
	state.ClearDirty()
	state.SetBindings()[0].ClearDirty()

	state.BindBuffer(buffer, 32, 64, 0, 1, 0)

	if !state.IsDirty() {
		t.Error("rebinding with a different offset did not dirty the state")
	}
}

func TestResourceBindingStateSparseCoordinates(t *testing.T) {
	var state ResourceBindingState
	view := &VulkanImageView{}
	sampler := &VulkanSampler{}

	state.BindImage(view, sampler, 3, 7, 2)
	state.BindInput(view, 0, 0, 0)

	if len(state.SetBindings()) != 2 {
		t.Fatalf("tracked %d sets, want 2", len(state.SetBindings()))
	}
	info := state.SetBindings()[3].ResourceBindings()[7][2]
	if info.ImageView != view || info.Sampler != sampler {
		t.Errorf("stored resource at (3,7,2) = %+v, want bound image", info)
	}
}

func TestResourceBindingStateSetDirtyIsPerSet(t *testing.T) {
	var state ResourceBindingState
	buffer := &VulkanBuffer{}

	state.BindBuffer(buffer, 0, 16, 0, 0, 0)
	state.BindBuffer(buffer, 0, 16, 1, 0, 0)

	state.ClearSetDirty(0)

	if state.SetBindings()[0].IsDirty() {
		t.Error("set 0 still dirty after ClearSetDirty(0)")
	}
	if !state.SetBindings()[1].IsDirty() {
		t.Error("ClearSetDirty(0) cleared set 1 as well")
	}
}

func TestResourceBindingStateReset(t *testing.T) {
	var state ResourceBindingState
	buffer := &VulkanBuffer{}

	state.BindBuffer(buffer, 0, 16, 0, 0, 0)
	state.Reset()

	if state.IsDirty() {
		t.Error("state dirty after Reset")
	}
	if len(state.SetBindings()) != 0 {
		t.Errorf("state still tracks %d sets after Reset", len(state.SetBindings()))
	}
}

func TestResourceInfoEqualComparesFullIdentity(t *testing.T) {
	bufferA := &VulkanBuffer{}
	bufferB := &VulkanBuffer{}

	base := ResourceInfo{Buffer: bufferA, Offset: 0, Range: 64}

	tests := []struct {
		name  string
		other ResourceInfo
		want  bool
	}{
		{"same", ResourceInfo{Buffer: bufferA, Offset: 0, Range: 64}, true},
		{"different buffer", ResourceInfo{Buffer: bufferB, Offset: 0, Range: 64}, false},
		{"different offset", ResourceInfo{Buffer: bufferA, Offset: 16, Range: 64}, false},
		{"different range", ResourceInfo{Buffer: bufferA, Offset: 0, Range: 32}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.equal(tt.other); got != tt.want {
				t.Errorf("equal = %t, want %t", got, tt.want)
			}
		})
	}
}
