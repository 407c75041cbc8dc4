package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/magma/engine/containers"
	"github.com/spaghettifunk/magma/engine/core"
)

// ResetMode selects how command buffers allocated from a pool return to the
// initial state between frames.
type ResetMode int

const (
	// Each buffer resets its own handle with vkResetCommandBuffer.
	ResetModeIndividually ResetMode = iota
	// The whole pool resets at once with vkResetCommandPool.
	ResetModePool
	// Buffers are freed and reallocated every frame.
	ResetModeAlwaysAllocate
)

const recycleQueueSize = 64

/**
 * @brief A command pool that hands out command buffers and recycles them
 * according to its reset mode. Allocation and reset must happen on the
 * thread that owns the pool; the buffers themselves enforce nothing.
 */
type VulkanCommandPool struct {
	Handle vk.CommandPool

	context          *VulkanContext
	queueFamilyIndex uint32
	resetMode        ResetMode

	allocatedPrimary   []*VulkanCommandBuffer
	allocatedSecondary []*VulkanCommandBuffer

	recycledPrimary   *containers.RingQueue[*VulkanCommandBuffer]
	recycledSecondary *containers.RingQueue[*VulkanCommandBuffer]
}

func NewVulkanCommandPool(context *VulkanContext, queueFamilyIndex uint32, resetMode ResetMode) (*VulkanCommandPool, error) {
	var flags vk.CommandPoolCreateFlags
	switch resetMode {
	case ResetModeIndividually:
		flags = vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit)
	case ResetModePool, ResetModeAlwaysAllocate:
		flags = vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit)
	}

	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamilyIndex,
		Flags:            flags,
	}
	createInfo.Deref()

	var handle vk.CommandPool
	if err := lockPool.SafeCall(CommandPoolManagement, func() error {
		if res := vk.CreateCommandPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
			err := core.NewVulkanError(int32(res), "failed to create command pool")
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &VulkanCommandPool{
		Handle:            handle,
		context:           context,
		queueFamilyIndex:  queueFamilyIndex,
		resetMode:         resetMode,
		recycledPrimary:   containers.NewRingQueue[*VulkanCommandBuffer](recycleQueueSize),
		recycledSecondary: containers.NewRingQueue[*VulkanCommandBuffer](recycleQueueSize),
	}, nil
}

func (cp *VulkanCommandPool) ResetMode() ResetMode {
	return cp.resetMode
}

func (cp *VulkanCommandPool) QueueFamilyIndex() uint32 {
	return cp.queueFamilyIndex
}

// RequestCommandBuffer returns a recycled command buffer when one is
// available, otherwise allocates a fresh one. With ResetModeAlwaysAllocate
// every request allocates.
func (cp *VulkanCommandPool) RequestCommandBuffer(level vk.CommandBufferLevel) (*VulkanCommandBuffer, error) {
	if cp.resetMode != ResetModeAlwaysAllocate {
		if recycled, err := cp.recycleQueue(level).Dequeue(); err == nil {
			return recycled, nil
		}
	}

	commandBuffer, err := NewVulkanCommandBuffer(cp.context, cp, level)
	if err != nil {
		return nil, err
	}

	if level == vk.CommandBufferLevelSecondary {
		cp.allocatedSecondary = append(cp.allocatedSecondary, commandBuffer)
	} else {
		cp.allocatedPrimary = append(cp.allocatedPrimary, commandBuffer)
	}

	return commandBuffer, nil
}

// ResetPool returns every allocated buffer to the initial state and makes
// it available for the next RequestCommandBuffer.
func (cp *VulkanCommandPool) ResetPool() error {
	switch cp.resetMode {
	case ResetModeIndividually:
		if err := cp.resetCommandBuffers(); err != nil {
			return err
		}

	case ResetModePool:
		if err := lockPool.SafeCall(CommandPoolManagement, func() error {
			if res := vk.ResetCommandPool(cp.context.Device.LogicalDevice, cp.Handle, 0); res != vk.Success {
				err := core.NewVulkanError(int32(res), "failed to reset command pool")
				core.LogError(err.Error())
				return err
			}
			return nil
		}); err != nil {
			return err
		}
		if err := cp.resetCommandBuffers(); err != nil {
			return err
		}

	case ResetModeAlwaysAllocate:
		cp.freeCommandBuffers()

	default:
		err := fmt.Errorf("unknown command pool reset mode %d", cp.resetMode)
		core.LogError(err.Error())
		return err
	}

	return nil
}

func (cp *VulkanCommandPool) recycleQueue(level vk.CommandBufferLevel) *containers.RingQueue[*VulkanCommandBuffer] {
	if level == vk.CommandBufferLevelSecondary {
		return cp.recycledSecondary
	}
	return cp.recycledPrimary
}

func (cp *VulkanCommandPool) resetCommandBuffers() error {
	for _, commandBuffer := range cp.allocatedPrimary {
		if err := commandBuffer.Reset(cp.resetMode); err != nil {
			return err
		}
		// A full recycle queue just means the buffer waits for the next
		// pool reset.
		_ = cp.recycledPrimary.Enqueue(commandBuffer)
	}
	for _, commandBuffer := range cp.allocatedSecondary {
		if err := commandBuffer.Reset(cp.resetMode); err != nil {
			return err
		}
		_ = cp.recycledSecondary.Enqueue(commandBuffer)
	}
	return nil
}

func (cp *VulkanCommandPool) freeCommandBuffers() {
	free := func(commandBuffers []*VulkanCommandBuffer) {
		handles := make([]vk.CommandBuffer, 0, len(commandBuffers))
		for _, commandBuffer := range commandBuffers {
			if commandBuffer.Handle != nil {
				handles = append(handles, commandBuffer.Handle)
				commandBuffer.Handle = nil
				commandBuffer.stream = nil
				commandBuffer.state = CommandBufferStateInvalid
			}
		}
		if len(handles) == 0 {
			return
		}
		_ = lockPool.SafeCall(CommandBufferManagement, func() error {
			vk.FreeCommandBuffers(cp.context.Device.LogicalDevice, cp.Handle, uint32(len(handles)), handles)
			return nil
		})
	}

	free(cp.allocatedPrimary)
	free(cp.allocatedSecondary)
	cp.allocatedPrimary = cp.allocatedPrimary[:0]
	cp.allocatedSecondary = cp.allocatedSecondary[:0]
}

func (cp *VulkanCommandPool) Destroy() {
	cp.freeCommandBuffers()
	if cp.Handle != nil {
		_ = lockPool.SafeCall(CommandPoolManagement, func() error {
			vk.DestroyCommandPool(cp.context.Device.LogicalDevice, cp.Handle, cp.context.Allocator)
			return nil
		})
		cp.Handle = nil
	}
}
