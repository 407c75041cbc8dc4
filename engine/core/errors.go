package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when a recording lifecycle precondition is
	// violated, e.g. Begin while already recording or End while not.
	ErrNotReady = errors.New("not ready")
	// ErrInvalidCommandBuffer is returned when operating on a command
	// buffer whose ownership has been transferred away.
	ErrInvalidCommandBuffer = errors.New("command buffer is invalid")
	ErrUnknown              = errors.New("unknown")
)

// VulkanError carries the driver result code alongside a human readable
// message for failed object creation.
type VulkanError struct {
	Result  int32
	Message string
}

func (e *VulkanError) Error() string {
	return fmt.Sprintf("%s (VkResult %d)", e.Message, e.Result)
}

func NewVulkanError(result int32, message string) *VulkanError {
	return &VulkanError{Result: result, Message: message}
}
