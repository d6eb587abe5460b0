//go:build cgo

package gpu

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Options configures Vulkan device selection.
type Options struct {
	// AppName is reported to the driver in the application info.
	AppName string
	// PreferDeviceName selects the first physical device whose name
	// contains this substring (case-insensitive). Empty matches any
	// device. When no preferred device qualifies, selection falls back to
	// the first device with a compute queue.
	PreferDeviceName string
}

// VulkanDevice implements Device on a Vulkan compute queue with
// host-visible, host-coherent buffer memory.
type VulkanDevice struct {
	instance    vk.Instance
	physical    vk.PhysicalDevice
	device      vk.Device
	queue       vk.Queue
	queueFamily uint32
	cmdPool     vk.CommandPool
	memProps    vk.PhysicalDeviceMemoryProperties
	name        string
}

var _ Device = (*VulkanDevice)(nil)

func vkCheck(ret vk.Result, what string) error {
	if ret != vk.Success {
		return fmt.Errorf("%s: %w", what, vk.Error(ret))
	}
	return nil
}

// Open initializes the Vulkan loader, picks a physical device with a
// compute queue, and builds the logical device, queue, and transient
// command pool.
func Open(opts Options) (*VulkanDevice, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, fmt.Errorf("locating Vulkan loader: %w", err)
	}
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("initializing Vulkan: %w", err)
	}

	d := &VulkanDevice{}
	if err := d.createInstance(opts.AppName); err != nil {
		return nil, err
	}
	if err := d.pickPhysicalDevice(opts.PreferDeviceName); err != nil {
		d.Free()
		return nil, err
	}
	if err := d.createDevice(); err != nil {
		d.Free()
		return nil, err
	}
	if err := d.createCommandPool(); err != nil {
		d.Free()
		return nil, err
	}
	return d, nil
}

func (d *VulkanDevice) Name() string { return d.name }

func (d *VulkanDevice) createInstance(appName string) error {
	if appName == "" {
		appName = "FlowVk"
	}
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   appName + "\x00",
		ApplicationVersion: vk.MakeVersion(0, 1, 0),
		PEngineName:        "FlowVk\x00",
		EngineVersion:      vk.MakeVersion(0, 1, 0),
		ApiVersion:         vk.ApiVersion11,
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}, nil, &instance)
	if err := vkCheck(ret, "vkCreateInstance"); err != nil {
		return err
	}
	d.instance = instance
	vk.InitInstance(instance)
	return nil
}

// computeQueueFamily returns the first queue family index of the device
// with compute capability, or false.
func computeQueueFamily(phys vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(phys, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(phys, &count, families)

	for i := range families {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

func physicalDeviceName(phys vk.PhysicalDevice) string {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(phys, &props)
	props.Deref()
	return vk.ToString(props.DeviceName[:])
}

func (d *VulkanDevice) pickPhysicalDevice(prefer string) error {
	var count uint32
	if err := vkCheck(vk.EnumeratePhysicalDevices(d.instance, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return err
	}
	if count == 0 {
		return errors.New("no Vulkan physical devices found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := vkCheck(vk.EnumeratePhysicalDevices(d.instance, &count, devices), "vkEnumeratePhysicalDevices"); err != nil {
		return err
	}

	pick := func(matchName bool) bool {
		for _, phys := range devices {
			if matchName && prefer != "" &&
				!strings.Contains(strings.ToLower(physicalDeviceName(phys)), strings.ToLower(prefer)) {
				continue
			}
			if family, ok := computeQueueFamily(phys); ok {
				d.physical = phys
				d.queueFamily = family
				d.name = physicalDeviceName(phys)
				return true
			}
		}
		return false
	}

	if !pick(true) && !pick(false) {
		return errors.New("no Vulkan device with a compute queue was found")
	}

	vk.GetPhysicalDeviceMemoryProperties(d.physical, &d.memProps)
	d.memProps.Deref()
	return nil
}

func (d *VulkanDevice) createDevice() error {
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.queueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	var device vk.Device
	ret := vk.CreateDevice(d.physical, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: uint32(len(queueInfos)),
		PQueueCreateInfos:    queueInfos,
	}, nil, &device)
	if err := vkCheck(ret, "vkCreateDevice"); err != nil {
		return err
	}
	d.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(d.device, d.queueFamily, 0, &queue)
	d.queue = queue
	return nil
}

func (d *VulkanDevice) createCommandPool() error {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(d.device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
		QueueFamilyIndex: d.queueFamily,
	}, nil, &pool)
	if err := vkCheck(ret, "vkCreateCommandPool"); err != nil {
		return err
	}
	d.cmdPool = pool
	return nil
}

func (d *VulkanDevice) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < d.memProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		d.memProps.MemoryTypes[i].Deref()
		if d.memProps.MemoryTypes[i].PropertyFlags&props == props {
			return i, true
		}
	}
	return 0, false
}

type vulkanBuffer struct {
	buf  vk.Buffer
	mem  vk.DeviceMemory
	size uint64
}

func (b *vulkanBuffer) SizeBytes() uint64 { return b.size }

func (d *VulkanDevice) AllocateBuffer(sizeBytes uint64) (BufferAlloc, error) {
	var buf vk.Buffer
	ret := vk.CreateBuffer(d.device, &vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  vk.DeviceSize(sizeBytes),
		Usage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit |
			vk.BufferUsageTransferSrcBit |
			vk.BufferUsageTransferDstBit),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	if err := vkCheck(ret, "vkCreateBuffer"); err != nil {
		return nil, err
	}

	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, buf, &memReq)
	memReq.Deref()

	memType, ok := d.findMemoryType(memReq.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if !ok {
		vk.DestroyBuffer(d.device, buf, nil)
		return nil, errors.New("no host-visible host-coherent memory type")
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(d.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if err := vkCheck(ret, "vkAllocateMemory"); err != nil {
		vk.DestroyBuffer(d.device, buf, nil)
		return nil, err
	}

	if err := vkCheck(vk.BindBufferMemory(d.device, buf, mem, 0), "vkBindBufferMemory"); err != nil {
		vk.FreeMemory(d.device, mem, nil)
		vk.DestroyBuffer(d.device, buf, nil)
		return nil, err
	}

	return &vulkanBuffer{buf: buf, mem: mem, size: sizeBytes}, nil
}

func (d *VulkanDevice) DestroyBuffer(buf BufferAlloc) {
	b := buf.(*vulkanBuffer)
	vk.DestroyBuffer(d.device, b.buf, nil)
	vk.FreeMemory(d.device, b.mem, nil)
}

func (d *VulkanDevice) WriteBuffer(buf BufferAlloc, data []byte) error {
	b := buf.(*vulkanBuffer)
	if len(data) == 0 {
		return nil
	}
	var mapped unsafe.Pointer
	ret := vk.MapMemory(d.device, b.mem, 0, vk.DeviceSize(vk.WholeSize), 0, &mapped)
	if err := vkCheck(ret, "vkMapMemory"); err != nil {
		return err
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(d.device, b.mem)
	return nil
}

func (d *VulkanDevice) ReadBuffer(buf BufferAlloc, out []byte) error {
	b := buf.(*vulkanBuffer)
	if len(out) == 0 {
		return nil
	}
	var mapped unsafe.Pointer
	ret := vk.MapMemory(d.device, b.mem, 0, vk.DeviceSize(vk.WholeSize), 0, &mapped)
	if err := vkCheck(ret, "vkMapMemory"); err != nil {
		return err
	}
	copy(out, unsafe.Slice((*byte)(mapped), len(out)))
	vk.UnmapMemory(d.device, b.mem)
	return nil
}

type vulkanSetLayout struct {
	layout vk.DescriptorSetLayout
}

func (d *VulkanDevice) CreateSetLayout(bindings []SetLayoutBinding) (SetLayout, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		}
	}

	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(d.device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}, nil, &layout)
	if err := vkCheck(ret, "vkCreateDescriptorSetLayout"); err != nil {
		return nil, err
	}
	return &vulkanSetLayout{layout: layout}, nil
}

func (d *VulkanDevice) DestroySetLayout(layout SetLayout) {
	vk.DestroyDescriptorSetLayout(d.device, layout.(*vulkanSetLayout).layout, nil)
}

type vulkanPipelineLayout struct {
	layout vk.PipelineLayout
}

func (d *VulkanDevice) CreatePipelineLayout(sets []SetLayout) (PipelineLayout, error) {
	setLayouts := make([]vk.DescriptorSetLayout, len(sets))
	for i, s := range sets {
		setLayouts[i] = s.(*vulkanSetLayout).layout
	}

	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(d.device, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}, nil, &layout)
	if err := vkCheck(ret, "vkCreatePipelineLayout"); err != nil {
		return nil, err
	}
	return &vulkanPipelineLayout{layout: layout}, nil
}

func (d *VulkanDevice) DestroyPipelineLayout(layout PipelineLayout) {
	vk.DestroyPipelineLayout(d.device, layout.(*vulkanPipelineLayout).layout, nil)
}

type vulkanPipeline struct {
	pipeline vk.Pipeline
}

func (d *VulkanDevice) CreateComputePipeline(code []byte, layout PipelineLayout) (Pipeline, error) {
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(d.device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &module)
	if err := vkCheck(ret, "vkCreateShaderModule"); err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(d.device, module, nil)

	pipelines := make([]vk.Pipeline, 1)
	ret = vk.CreateComputePipelines(d.device, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.ComputePipelineCreateInfo{{
			SType: vk.StructureTypeComputePipelineCreateInfo,
			Stage: vk.PipelineShaderStageCreateInfo{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vk.ShaderStageComputeBit,
				Module: module,
				PName:  "main\x00",
			},
			Layout: layout.(*vulkanPipelineLayout).layout,
		}}, nil, pipelines)
	if err := vkCheck(ret, "vkCreateComputePipelines"); err != nil {
		return nil, err
	}
	return &vulkanPipeline{pipeline: pipelines[0]}, nil
}

func (d *VulkanDevice) DestroyPipeline(p Pipeline) {
	vk.DestroyPipeline(d.device, p.(*vulkanPipeline).pipeline, nil)
}

type vulkanSet struct {
	set vk.DescriptorSet
}

type vulkanBindingPool struct {
	pool vk.DescriptorPool
	sets []BindingSet
}

func (p *vulkanBindingPool) Sets() []BindingSet { return p.sets }

func (d *VulkanDevice) CreateBindingPool(sets []SetLayout, bindingCount int) (BindingPool, error) {
	if len(sets) == 0 {
		return &vulkanBindingPool{}, nil
	}
	if bindingCount < 1 {
		bindingCount = 1
	}

	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(d.device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(len(sets)),
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeStorageBuffer,
			DescriptorCount: uint32(bindingCount),
		}},
	}, nil, &pool)
	if err := vkCheck(ret, "vkCreateDescriptorPool"); err != nil {
		return nil, err
	}

	layouts := make([]vk.DescriptorSetLayout, len(sets))
	for i, s := range sets {
		layouts[i] = s.(*vulkanSetLayout).layout
	}
	vkSets := make([]vk.DescriptorSet, len(sets))
	ret = vk.AllocateDescriptorSets(d.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(len(sets)),
		PSetLayouts:        layouts,
	}, &vkSets[0])
	if err := vkCheck(ret, "vkAllocateDescriptorSets"); err != nil {
		vk.DestroyDescriptorPool(d.device, pool, nil)
		return nil, err
	}

	out := &vulkanBindingPool{pool: pool}
	for _, s := range vkSets {
		out.sets = append(out.sets, &vulkanSet{set: s})
	}
	return out, nil
}

func (d *VulkanDevice) DestroyBindingPool(pool BindingPool) {
	p := pool.(*vulkanBindingPool)
	if p.pool != vk.DescriptorPool(vk.NullHandle) {
		vk.DestroyDescriptorPool(d.device, p.pool, nil)
	}
}

func (d *VulkanDevice) WriteBindings(writes []BindingWrite) error {
	if len(writes) == 0 {
		return nil
	}
	vkWrites := make([]vk.WriteDescriptorSet, len(writes))
	for i, w := range writes {
		vkWrites[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          w.Set.(*vulkanSet).set,
			DstBinding:      w.Binding,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: w.Buffer.(*vulkanBuffer).buf,
				Offset: 0,
				Range:  vk.DeviceSize(vk.WholeSize),
			}},
		}
	}
	vk.UpdateDescriptorSets(d.device, uint32(len(vkWrites)), vkWrites, 0, nil)
	return nil
}

type vulkanCommands struct {
	dev *VulkanDevice
	cmd vk.CommandBuffer
}

func (d *VulkanDevice) BeginCommands() (Commands, error) {
	cmds := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(d.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.cmdPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmds)
	if err := vkCheck(ret, "vkAllocateCommandBuffers"); err != nil {
		return nil, err
	}

	ret = vk.BeginCommandBuffer(cmds[0], &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := vkCheck(ret, "vkBeginCommandBuffer"); err != nil {
		vk.FreeCommandBuffers(d.device, d.cmdPool, 1, cmds)
		return nil, err
	}
	return &vulkanCommands{dev: d, cmd: cmds[0]}, nil
}

func (c *vulkanCommands) FillBuffer(buf BufferAlloc, sizeBytes uint64) {
	b := buf.(*vulkanBuffer)
	vk.CmdFillBuffer(c.cmd, b.buf, 0, vk.DeviceSize(sizeBytes), 0)
}

// phaseMasks yields the access mask and pipeline stage for one side of a
// barrier. The shader phase reads and writes as a destination but only
// writes as a source.
func phaseMasks(p Phase, isSrc bool) (vk.AccessFlags, vk.PipelineStageFlags) {
	switch p {
	case PhaseHostWrite:
		return vk.AccessFlags(vk.AccessHostWriteBit), vk.PipelineStageFlags(vk.PipelineStageHostBit)
	case PhaseTransferWrite:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case PhaseShader:
		if isSrc {
			return vk.AccessFlags(vk.AccessShaderWriteBit), vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
		}
		return vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	case PhaseHostRead:
		return vk.AccessFlags(vk.AccessHostReadBit), vk.PipelineStageFlags(vk.PipelineStageHostBit)
	default:
		return 0, vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	}
}

func (c *vulkanCommands) Barrier(bufs []BufferAlloc, src, dst Phase) {
	if len(bufs) == 0 {
		return
	}
	srcAccess, srcStage := phaseMasks(src, true)
	dstAccess, dstStage := phaseMasks(dst, false)

	barriers := make([]vk.BufferMemoryBarrier, len(bufs))
	for i, buf := range bufs {
		b := buf.(*vulkanBuffer)
		barriers[i] = vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       srcAccess,
			DstAccessMask:       dstAccess,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              b.buf,
			Offset:              0,
			Size:                vk.DeviceSize(vk.WholeSize),
		}
	}
	vk.CmdPipelineBarrier(c.cmd, srcStage, dstStage, 0,
		0, nil, uint32(len(barriers)), barriers, 0, nil)
}

func (c *vulkanCommands) BindPipeline(p Pipeline) {
	vk.CmdBindPipeline(c.cmd, vk.PipelineBindPointCompute, p.(*vulkanPipeline).pipeline)
}

func (c *vulkanCommands) BindSets(layout PipelineLayout, sets []BindingSet) {
	if len(sets) == 0 {
		return
	}
	vkSets := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		vkSets[i] = s.(*vulkanSet).set
	}
	vk.CmdBindDescriptorSets(c.cmd, vk.PipelineBindPointCompute,
		layout.(*vulkanPipelineLayout).layout, 0, uint32(len(vkSets)), vkSets, 0, nil)
}

func (c *vulkanCommands) Dispatch(x, y, z uint32) {
	vk.CmdDispatch(c.cmd, x, y, z)
}

func (d *VulkanDevice) Submit(cmds Commands) error {
	c := cmds.(*vulkanCommands)
	bufs := []vk.CommandBuffer{c.cmd}
	defer vk.FreeCommandBuffers(d.device, d.cmdPool, 1, bufs)

	if err := vkCheck(vk.EndCommandBuffer(c.cmd), "vkEndCommandBuffer"); err != nil {
		return err
	}

	var fence vk.Fence
	ret := vk.CreateFence(d.device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &fence)
	if err := vkCheck(ret, "vkCreateFence"); err != nil {
		return err
	}
	defer vk.DestroyFence(d.device, fence, nil)

	ret = vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    bufs,
	}}, fence)
	if err := vkCheck(ret, "vkQueueSubmit"); err != nil {
		return err
	}

	ret = vk.WaitForFences(d.device, 1, []vk.Fence{fence}, vk.True, math.MaxUint64)
	return vkCheck(ret, "vkWaitForFences")
}

func (d *VulkanDevice) Free() {
	if d.device != vk.Device(vk.NullHandle) {
		vk.DeviceWaitIdle(d.device)
		if d.cmdPool != vk.CommandPool(vk.NullHandle) {
			vk.DestroyCommandPool(d.device, d.cmdPool, nil)
			d.cmdPool = vk.CommandPool(vk.NullHandle)
		}
		vk.DestroyDevice(d.device, nil)
		d.device = vk.Device(vk.NullHandle)
	}
	if d.instance != vk.Instance(vk.NullHandle) {
		vk.DestroyInstance(d.instance, nil)
		d.instance = vk.Instance(vk.NullHandle)
	}
}

// DeviceInfo describes one physical device for diagnostics.
type DeviceInfo struct {
	Name       string
	Type       string
	APIVersion string
	HasCompute bool
}

// ListDevices enumerates the physical devices visible to the loader. It
// creates and destroys a throwaway instance.
func ListDevices() ([]DeviceInfo, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, fmt.Errorf("locating Vulkan loader: %w", err)
	}
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("initializing Vulkan: %w", err)
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
	}, nil, &instance)
	if err := vkCheck(ret, "vkCreateInstance"); err != nil {
		return nil, err
	}
	vk.InitInstance(instance)
	defer vk.DestroyInstance(instance, nil)

	var count uint32
	if err := vkCheck(vk.EnumeratePhysicalDevices(instance, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, count)
	if count > 0 {
		if err := vkCheck(vk.EnumeratePhysicalDevices(instance, &count, devices), "vkEnumeratePhysicalDevices"); err != nil {
			return nil, err
		}
	}

	infos := make([]DeviceInfo, 0, count)
	for _, phys := range devices {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(phys, &props)
		props.Deref()
		_, hasCompute := computeQueueFamily(phys)
		infos = append(infos, DeviceInfo{
			Name: vk.ToString(props.DeviceName[:]),
			Type: physicalDeviceType(props.DeviceType),
			APIVersion: fmt.Sprintf("%d.%d.%d",
				props.ApiVersion>>22, (props.ApiVersion>>12)&0x3ff, props.ApiVersion&0xfff),
			HasCompute: hasCompute,
		})
	}
	return infos, nil
}

func physicalDeviceType(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "other"
	}
}

// sliceUint32 reinterprets a word-aligned byte slice as SPIR-V words. The
// caller has already validated length and alignment.
func sliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}
