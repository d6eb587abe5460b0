//go:build !cgo

package gpu

import "errors"

// ErrNoVulkan is returned when the binary was built without cgo and the
// Vulkan loader cannot be reached.
var ErrNoVulkan = errors.New("vulkan support requires a cgo-enabled build")

// Options configures Vulkan device selection.
type Options struct {
	AppName          string
	PreferDeviceName string
}

// VulkanDevice is unavailable without cgo.
type VulkanDevice struct{}

func Open(opts Options) (*VulkanDevice, error) {
	return nil, ErrNoVulkan
}

// DeviceInfo describes one physical device for diagnostics.
type DeviceInfo struct {
	Name       string
	Type       string
	APIVersion string
	HasCompute bool
}

func ListDevices() ([]DeviceInfo, error) {
	return nil, ErrNoVulkan
}

func (d *VulkanDevice) Name() string { return "none" }

func (d *VulkanDevice) AllocateBuffer(sizeBytes uint64) (BufferAlloc, error) {
	return nil, ErrNoVulkan
}

func (d *VulkanDevice) DestroyBuffer(buf BufferAlloc) {}

func (d *VulkanDevice) WriteBuffer(buf BufferAlloc, data []byte) error { return ErrNoVulkan }

func (d *VulkanDevice) ReadBuffer(buf BufferAlloc, out []byte) error { return ErrNoVulkan }

func (d *VulkanDevice) CreateSetLayout(bindings []SetLayoutBinding) (SetLayout, error) {
	return nil, ErrNoVulkan
}

func (d *VulkanDevice) DestroySetLayout(layout SetLayout) {}

func (d *VulkanDevice) CreatePipelineLayout(sets []SetLayout) (PipelineLayout, error) {
	return nil, ErrNoVulkan
}

func (d *VulkanDevice) DestroyPipelineLayout(layout PipelineLayout) {}

func (d *VulkanDevice) CreateComputePipeline(code []byte, layout PipelineLayout) (Pipeline, error) {
	return nil, ErrNoVulkan
}

func (d *VulkanDevice) DestroyPipeline(p Pipeline) {}

func (d *VulkanDevice) CreateBindingPool(sets []SetLayout, bindingCount int) (BindingPool, error) {
	return nil, ErrNoVulkan
}

func (d *VulkanDevice) DestroyBindingPool(pool BindingPool) {}

func (d *VulkanDevice) WriteBindings(writes []BindingWrite) error { return ErrNoVulkan }

func (d *VulkanDevice) BeginCommands() (Commands, error) { return nil, ErrNoVulkan }

func (d *VulkanDevice) Submit(cmds Commands) error { return ErrNoVulkan }

func (d *VulkanDevice) Free() {}
