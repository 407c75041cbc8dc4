package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/magma/engine/containers"
	"github.com/spaghettifunk/magma/engine/core"
)

// ResourceCache is the get-or-create store the command buffer resolves
// render passes, framebuffers, pipelines and descriptor sets from. Requests
// are keyed structurally: identical keys must yield the identical object
// instance, never a duplicate, and implementations must be safe for
// concurrent use by several recording sequences.
type ResourceCache interface {
	RequestRenderPass(attachments []Attachment, loadStoreOps []LoadStoreOp, subpasses []SubpassInfo) (*VulkanRenderPass, error)
	RequestFramebuffer(target *RenderTarget, renderPass *VulkanRenderPass) (*VulkanFramebuffer, error)
	RequestGraphicsPipeline(state *PipelineState) (*VulkanPipeline, error)
	RequestComputePipeline(state *PipelineState) (*VulkanPipeline, error)
	RequestDescriptorSet(layout *VulkanDescriptorSetLayout, bufferInfos BindingMap[vk.DescriptorBufferInfo], imageInfos BindingMap[vk.DescriptorImageInfo]) (*VulkanDescriptorSet, error)
}

/**
 * @brief Default ResourceCache: one sharded get-or-create cache per object
 * kind, keyed by FNV-hashed structural strings. Cached objects live until
 * the cache is destroyed; recording sequences hold non-owning references.
 */
type VulkanResourceCache struct {
	context *VulkanContext

	descriptorPool *VulkanDescriptorPool

	renderPasses      *containers.Cache[string, *VulkanRenderPass]
	framebuffers      *containers.Cache[string, *VulkanFramebuffer]
	graphicsPipelines *containers.Cache[string, *VulkanPipeline]
	computePipelines  *containers.Cache[string, *VulkanPipeline]
	descriptorSets    *containers.Cache[string, *VulkanDescriptorSet]
}

func NewVulkanResourceCache(context *VulkanContext, config core.RendererConfig) (*VulkanResourceCache, error) {
	descriptorPool, err := NewVulkanDescriptorPool(context)
	if err != nil {
		return nil, err
	}

	capacity := config.CacheShardCapacity
	return &VulkanResourceCache{
		context:           context,
		descriptorPool:    descriptorPool,
		renderPasses:      containers.NewCache[string, *VulkanRenderPass](capacity, containers.StringHasher),
		framebuffers:      containers.NewCache[string, *VulkanFramebuffer](capacity, containers.StringHasher),
		graphicsPipelines: containers.NewCache[string, *VulkanPipeline](capacity, containers.StringHasher),
		computePipelines:  containers.NewCache[string, *VulkanPipeline](capacity, containers.StringHasher),
		descriptorSets:    containers.NewCache[string, *VulkanDescriptorSet](capacity, containers.StringHasher),
	}, nil
}

func (rc *VulkanResourceCache) RequestRenderPass(attachments []Attachment, loadStoreOps []LoadStoreOp, subpasses []SubpassInfo) (*VulkanRenderPass, error) {
	var key strings.Builder
	for _, att := range attachments {
		fmt.Fprintf(&key, "a:%d:%d:%d:%d:%d;", att.Format, att.Samples, att.Usage, att.InitialLayout, att.FinalLayout)
	}
	for _, op := range loadStoreOps {
		fmt.Fprintf(&key, "l:%d:%d;", op.LoadOp, op.StoreOp)
	}
	for _, subpass := range subpasses {
		fmt.Fprintf(&key, "s:%v:%v;", subpass.InputAttachments, subpass.OutputAttachments)
	}

	return rc.renderPasses.GetOrCreate(key.String(), func() (*VulkanRenderPass, error) {
		return NewVulkanRenderPass(rc.context, attachments, loadStoreOps, subpasses)
	})
}

func (rc *VulkanResourceCache) RequestFramebuffer(target *RenderTarget, renderPass *VulkanRenderPass) (*VulkanFramebuffer, error) {
	var key strings.Builder
	fmt.Fprintf(&key, "rp:%p;e:%dx%d;", renderPass, target.Extent.Width, target.Extent.Height)
	for _, view := range target.Views {
		fmt.Fprintf(&key, "v:%p;", view)
	}

	return rc.framebuffers.GetOrCreate(key.String(), func() (*VulkanFramebuffer, error) {
		return NewVulkanFramebuffer(rc.context, target, renderPass)
	})
}

func (rc *VulkanResourceCache) RequestGraphicsPipeline(state *PipelineState) (*VulkanPipeline, error) {
	var key strings.Builder
	writePipelineStateKey(&key, state)
	fmt.Fprintf(&key, "rp:%p;sub:%d;", state.RenderPass(), state.SubpassIndex())
	fmt.Fprintf(&key, "vi:%v:%v;", state.VertexInputState().Bindings, state.VertexInputState().Attributes)
	fmt.Fprintf(&key, "ia:%v;ra:%v;vp:%v;ms:%v;ds:%v;cb:%v;",
		state.InputAssemblyState(), state.RasterizationState(), state.ViewportState(),
		state.MultisampleState(), state.DepthStencilState(), state.ColorBlendState())

	return rc.graphicsPipelines.GetOrCreate(key.String(), func() (*VulkanPipeline, error) {
		return NewVulkanGraphicsPipeline(rc.context, state)
	})
}

func (rc *VulkanResourceCache) RequestComputePipeline(state *PipelineState) (*VulkanPipeline, error) {
	var key strings.Builder
	writePipelineStateKey(&key, state)

	return rc.computePipelines.GetOrCreate(key.String(), func() (*VulkanPipeline, error) {
		return NewVulkanComputePipeline(rc.context, state)
	})
}

func (rc *VulkanResourceCache) RequestDescriptorSet(layout *VulkanDescriptorSetLayout, bufferInfos BindingMap[vk.DescriptorBufferInfo], imageInfos BindingMap[vk.DescriptorImageInfo]) (*VulkanDescriptorSet, error) {
	var key strings.Builder
	fmt.Fprintf(&key, "dsl:%p;", layout)
	forEachBindingSorted(bufferInfos, func(binding, element uint32, info vk.DescriptorBufferInfo) {
		fmt.Fprintf(&key, "b:%d:%d:%v:%d:%d;", binding, element, info.Buffer, info.Offset, info.Range)
	})
	forEachBindingSorted(imageInfos, func(binding, element uint32, info vk.DescriptorImageInfo) {
		fmt.Fprintf(&key, "i:%d:%d:%v:%v:%d;", binding, element, info.Sampler, info.ImageView, info.ImageLayout)
	})

	return rc.descriptorSets.GetOrCreate(key.String(), func() (*VulkanDescriptorSet, error) {
		return rc.descriptorPool.Allocate(rc.context, layout, bufferInfos, imageInfos)
	})
}

// InvalidatePipelines drops every cached pipeline. The shader watcher calls
// this when a SPIR-V file changes so the next flush materializes pipelines
// from the recompiled code.
func (rc *VulkanResourceCache) InvalidatePipelines() {
	rc.graphicsPipelines.Clear()
	rc.computePipelines.Clear()
	core.LogInfo("pipeline caches invalidated")
}

// writePipelineStateKey serializes the render-pass independent part of the
// pipeline key: layout identity, shader identities and the specialization
// constant table.
func writePipelineStateKey(key *strings.Builder, state *PipelineState) {
	layout := state.PipelineLayout()
	fmt.Fprintf(key, "pl:%p;", layout)
	if layout != nil {
		for _, module := range layout.ShaderModules {
			fmt.Fprintf(key, "sh:%s;", module.ID)
		}
	}

	table := state.SpecializationConstantState().ConstantTable()
	constantIDs := maps.Keys(table)
	slices.Sort(constantIDs)
	for _, id := range constantIDs {
		fmt.Fprintf(key, "sc:%d:%x;", id, table[id])
	}
}

func forEachBindingSorted[T any](bindings BindingMap[T], fn func(binding, element uint32, value T)) {
	bindingIndices := maps.Keys(bindings)
	slices.Sort(bindingIndices)
	for _, binding := range bindingIndices {
		elements := maps.Keys(bindings[binding])
		slices.Sort(elements)
		for _, element := range elements {
			fn(binding, element, bindings[binding][element])
		}
	}
}
