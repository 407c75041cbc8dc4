package vulkan

import (
	vk "github.com/goki/vulkan"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/magma/engine/core"
)

/**
 * @brief A materialized pipeline layout: the set-index to set-layout mapping
 * plus push constant ranges. The flush engine reads the declared shape from
 * here; it never mutates it.
 */
type VulkanPipelineLayout struct {
	Handle vk.PipelineLayout

	// Shader modules the layout was reflected from. Graphics and compute
	// pipeline materialization pulls its stages from here.
	ShaderModules []*VulkanShaderModule

	setLayouts         map[uint32]*VulkanDescriptorSetLayout
	pushConstantRanges []vk.PushConstantRange
}

func NewVulkanPipelineLayout(context *VulkanContext, shaderModules []*VulkanShaderModule, setLayouts map[uint32]*VulkanDescriptorSetLayout, pushConstantRanges []vk.PushConstantRange) (*VulkanPipelineLayout, error) {
	setIndices := maps.Keys(setLayouts)
	slices.Sort(setIndices)

	handles := make([]vk.DescriptorSetLayout, 0, len(setLayouts))
	for _, setIndex := range setIndices {
		handles = append(handles, setLayouts[setIndex].Handle)
	}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(handles)),
		PSetLayouts:            handles,
		PushConstantRangeCount: uint32(len(pushConstantRanges)),
		PPushConstantRanges:    pushConstantRanges,
	}
	createInfo.Deref()

	var handle vk.PipelineLayout
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
			err := core.NewVulkanError(int32(res), "failed to create pipeline layout")
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &VulkanPipelineLayout{
		Handle:             handle,
		ShaderModules:      shaderModules,
		setLayouts:         setLayouts,
		pushConstantRanges: pushConstantRanges,
	}, nil
}

// SetBindings returns the declared set-index to binding-list mapping.
func (pl *VulkanPipelineLayout) SetBindings() map[uint32][]vk.DescriptorSetLayoutBinding {
	bindings := make(map[uint32][]vk.DescriptorSetLayoutBinding, len(pl.setLayouts))
	for setIndex, layout := range pl.setLayouts {
		bindings[setIndex] = layout.Bindings
	}
	return bindings
}

func (pl *VulkanPipelineLayout) HasSetLayout(setIndex uint32) bool {
	_, ok := pl.setLayouts[setIndex]
	return ok
}

func (pl *VulkanPipelineLayout) SetLayout(setIndex uint32) *VulkanDescriptorSetLayout {
	return pl.setLayouts[setIndex]
}

// PushConstantRangeStage returns the shader stages of the declared push
// constant range covering [offset, offset+size), or 0 when no range does.
func (pl *VulkanPipelineLayout) PushConstantRangeStage(offset, size uint32) vk.ShaderStageFlags {
	for _, r := range pl.pushConstantRanges {
		if offset >= r.Offset && offset+size <= r.Offset+r.Size {
			return r.StageFlags
		}
	}
	return 0
}

func (pl *VulkanPipelineLayout) Destroy(context *VulkanContext) {
	if pl.Handle != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, pl.Handle, context.Allocator)
		pl.Handle = nil
	}
}
