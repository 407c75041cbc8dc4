package vulkan

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief One bound resource at a (set, binding, element) coordinate.
 * Exactly one variant is populated: a buffer region, an image view with an
 * optional sampler, or a bare input attachment view.
 */
type ResourceInfo struct {
	Buffer *VulkanBuffer
	Offset vk.DeviceSize
	Range  vk.DeviceSize

	ImageView *VulkanImageView
	Sampler   *VulkanSampler
}

// equal compares full resource identity, not just presence. The dirty
// tracking relies on this to skip rebinding identical resources.
func (r ResourceInfo) equal(other ResourceInfo) bool {
	return r.Buffer == other.Buffer &&
		r.Offset == other.Offset &&
		r.Range == other.Range &&
		r.ImageView == other.ImageView &&
		r.Sampler == other.Sampler
}

/**
 * @brief The bindings of a single descriptor set index: binding index to
 * array element to resource, plus a dirty marker covering the whole set.
 */
type ResourceSet struct {
	dirty            bool
	resourceBindings BindingMap[ResourceInfo]
}

func (rs *ResourceSet) IsDirty() bool {
	return rs.dirty
}

func (rs *ResourceSet) ClearDirty() {
	rs.dirty = false
}

func (rs *ResourceSet) ResourceBindings() BindingMap[ResourceInfo] {
	return rs.resourceBindings
}

func (rs *ResourceSet) bind(binding, arrayElement uint32, info ResourceInfo) {
	if elements, ok := rs.resourceBindings[binding]; ok {
		if existing, ok := elements[arrayElement]; ok && existing.equal(info) {
			return
		}
	}
	if rs.resourceBindings == nil {
		rs.resourceBindings = make(BindingMap[ResourceInfo])
	}
	if rs.resourceBindings[binding] == nil {
		rs.resourceBindings[binding] = make(map[uint32]ResourceInfo)
	}
	rs.resourceBindings[binding][arrayElement] = info
	rs.dirty = true
}

/**
 * @brief Tracks which resource is bound at every (set, binding, element)
 * coordinate of the current recording sequence. Gaps are allowed; indices
 * are caller assigned and never compacted.
 */
type ResourceBindingState struct {
	dirty       bool
	setBindings map[uint32]*ResourceSet
}

func (rbs *ResourceBindingState) Reset() {
	rbs.dirty = false
	rbs.setBindings = nil
}

func (rbs *ResourceBindingState) IsDirty() bool {
	return rbs.dirty
}

// ClearDirty clears the global marker. Per-set markers are cleared one at a
// time as the flush materializes each set.
func (rbs *ResourceBindingState) ClearDirty() {
	rbs.dirty = false
}

// ClearSetDirty clears the marker of one set after it was flushed.
func (rbs *ResourceBindingState) ClearSetDirty(set uint32) {
	if resourceSet, ok := rbs.setBindings[set]; ok {
		resourceSet.ClearDirty()
	}
}

func (rbs *ResourceBindingState) SetBindings() map[uint32]*ResourceSet {
	return rbs.setBindings
}

func (rbs *ResourceBindingState) BindBuffer(buffer *VulkanBuffer, offset, bindingRange vk.DeviceSize, set, binding, arrayElement uint32) {
	rbs.bind(set, binding, arrayElement, ResourceInfo{
		Buffer: buffer,
		Offset: offset,
		Range:  bindingRange,
	})
}

func (rbs *ResourceBindingState) BindImage(imageView *VulkanImageView, sampler *VulkanSampler, set, binding, arrayElement uint32) {
	rbs.bind(set, binding, arrayElement, ResourceInfo{
		ImageView: imageView,
		Sampler:   sampler,
	})
}

func (rbs *ResourceBindingState) BindInput(imageView *VulkanImageView, set, binding, arrayElement uint32) {
	rbs.bind(set, binding, arrayElement, ResourceInfo{
		ImageView: imageView,
	})
}

func (rbs *ResourceBindingState) bind(set, binding, arrayElement uint32, info ResourceInfo) {
	if rbs.setBindings == nil {
		rbs.setBindings = make(map[uint32]*ResourceSet)
	}
	resourceSet, ok := rbs.setBindings[set]
	if !ok {
		resourceSet = &ResourceSet{}
		rbs.setBindings[set] = resourceSet
	}

	resourceSet.bind(binding, arrayElement, info)
	if resourceSet.IsDirty() {
		rbs.dirty = true
	}
}
