package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
)

// BindingMap is the sparse two-level mapping used throughout the descriptor
// flush: binding index, then array element index.
type BindingMap[T any] map[uint32]map[uint32]T

/**
 * @brief A materialized descriptor set layout. Immutable; identity (the
 * handle) is what the flush compares when deciding whether a set must be
 * rebound after a pipeline layout swap.
 */
type VulkanDescriptorSetLayout struct {
	Handle   vk.DescriptorSetLayout
	Bindings []vk.DescriptorSetLayoutBinding

	bindingLookup map[uint32]vk.DescriptorSetLayoutBinding
}

func NewVulkanDescriptorSetLayout(context *VulkanContext, bindings []vk.DescriptorSetLayoutBinding) (*VulkanDescriptorSetLayout, error) {
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	createInfo.Deref()

	var handle vk.DescriptorSetLayout
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
			err := core.NewVulkanError(int32(res), "failed to create descriptor set layout")
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return newDescriptorSetLayout(handle, bindings), nil
}

func newDescriptorSetLayout(handle vk.DescriptorSetLayout, bindings []vk.DescriptorSetLayoutBinding) *VulkanDescriptorSetLayout {
	lookup := make(map[uint32]vk.DescriptorSetLayoutBinding, len(bindings))
	for _, binding := range bindings {
		lookup[binding.Binding] = binding
	}
	return &VulkanDescriptorSetLayout{
		Handle:        handle,
		Bindings:      bindings,
		bindingLookup: lookup,
	}
}

// LayoutBinding returns the declared binding at the given index, if any.
func (dsl *VulkanDescriptorSetLayout) LayoutBinding(bindingIndex uint32) (vk.DescriptorSetLayoutBinding, bool) {
	binding, ok := dsl.bindingLookup[bindingIndex]
	return binding, ok
}

func (dsl *VulkanDescriptorSetLayout) Destroy(context *VulkanContext) {
	if dsl.Handle != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, dsl.Handle, context.Allocator)
		dsl.Handle = nil
	}
}

/**
 * @brief A materialized descriptor set: allocated from the pool, written
 * once from the accumulated buffer/image infos and then immutable. Owned by
 * the resource cache.
 */
type VulkanDescriptorSet struct {
	Handle vk.DescriptorSet
	Layout *VulkanDescriptorSetLayout
}

/**
 * @brief A fixed-size descriptor pool the default resource cache allocates
 * sets from.
 */
type VulkanDescriptorPool struct {
	Handle vk.DescriptorPool
}

const descriptorPoolSize uint32 = 1024

func NewVulkanDescriptorPool(context *VulkanContext) (*VulkanDescriptorPool, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: descriptorPoolSize},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: descriptorPoolSize},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: descriptorPoolSize},
		{Type: vk.DescriptorTypeStorageBufferDynamic, DescriptorCount: descriptorPoolSize},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: descriptorPoolSize},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: descriptorPoolSize},
		{Type: vk.DescriptorTypeInputAttachment, DescriptorCount: descriptorPoolSize},
	}

	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       descriptorPoolSize,
	}
	createInfo.Deref()

	var handle vk.DescriptorPool
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
			err := core.NewVulkanError(int32(res), "failed to create descriptor pool")
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &VulkanDescriptorPool{Handle: handle}, nil
}

// Allocate carves one descriptor set matching the layout out of the pool and
// writes the supplied buffer and image infos into it.
func (dp *VulkanDescriptorPool) Allocate(context *VulkanContext, layout *VulkanDescriptorSetLayout, bufferInfos BindingMap[vk.DescriptorBufferInfo], imageInfos BindingMap[vk.DescriptorImageInfo]) (*VulkanDescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     dp.Handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.Handle},
	}
	allocInfo.Deref()

	sets := make([]vk.DescriptorSet, 1)
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &sets[0]); res != vk.Success {
			err := core.NewVulkanError(int32(res), "failed to allocate descriptor set")
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	writes := make([]vk.WriteDescriptorSet, 0, len(bufferInfos)+len(imageInfos))
	for bindingIndex, elements := range bufferInfos {
		binding, ok := layout.LayoutBinding(bindingIndex)
		if !ok {
			continue
		}
		for element, info := range elements {
			write := vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          sets[0],
				DstBinding:      bindingIndex,
				DstArrayElement: element,
				DescriptorCount: 1,
				DescriptorType:  binding.DescriptorType,
				PBufferInfo:     []vk.DescriptorBufferInfo{info},
			}
			write.Deref()
			writes = append(writes, write)
		}
	}
	for bindingIndex, elements := range imageInfos {
		binding, ok := layout.LayoutBinding(bindingIndex)
		if !ok {
			continue
		}
		for element, info := range elements {
			write := vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          sets[0],
				DstBinding:      bindingIndex,
				DstArrayElement: element,
				DescriptorCount: 1,
				DescriptorType:  binding.DescriptorType,
				PImageInfo:      []vk.DescriptorImageInfo{info},
			}
			write.Deref()
			writes = append(writes, write)
		}
	}

	if len(writes) > 0 {
		_ = lockPool.SafeCall(DescriptorManagement, func() error {
			vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
			return nil
		})
	}

	return &VulkanDescriptorSet{Handle: sets[0], Layout: layout}, nil
}

func (dp *VulkanDescriptorPool) Destroy(context *VulkanContext) {
	if dp.Handle != nil {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, dp.Handle, context.Allocator)
		dp.Handle = nil
	}
}
