package vulkan

import (
	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/magma/engine/core"
)

/**
 * @brief A compiled shader stage. The ID gives the module a stable identity
 * for structural cache keys: two modules with different code never share an
 * ID, so pipelines built from them never alias in the cache.
 */
type VulkanShaderModule struct {
	ID         uuid.UUID
	Handle     vk.ShaderModule
	Stage      vk.ShaderStageFlagBits
	EntryPoint string
}

// NewVulkanShaderModule wraps SPIR-V code into a shader module.
func NewVulkanShaderModule(context *VulkanContext, code []uint32, stage vk.ShaderStageFlagBits, entryPoint string) (*VulkanShaderModule, error) {
	if entryPoint == "" {
		entryPoint = "main"
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)) * 4,
		PCode:    code,
	}
	createInfo.Deref()

	var handle vk.ShaderModule
	if err := lockPool.SafeCall(ShaderManagement, func() error {
		if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
			err := core.NewVulkanError(int32(res), "failed to create shader module")
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &VulkanShaderModule{
		ID:         uuid.New(),
		Handle:     handle,
		Stage:      stage,
		EntryPoint: entryPoint,
	}, nil
}

func (sm *VulkanShaderModule) Destroy(context *VulkanContext) {
	if sm.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, sm.Handle, context.Allocator)
		sm.Handle = nil
	}
}
