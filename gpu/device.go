// Package gpu abstracts the compute device the flow runtime drives: a
// logical device with one compute queue, a host-visible allocator, and a
// transient command pool. The real implementation sits on Vulkan; a fake
// in-memory device backs the test suite.
package gpu

import "fmt"

// Phase names a memory visibility stage used in barriers. A barrier
// transitions buffer contents from being visible to the source phase to
// being visible to the destination phase.
type Phase int

const (
	// PhaseHostWrite: data written by the host through a mapped pointer.
	PhaseHostWrite Phase = iota
	// PhaseTransferWrite: data written by a transfer command (buffer fill).
	PhaseTransferWrite
	// PhaseShader: data read or written by a compute shader.
	PhaseShader
	// PhaseHostRead: data about to be read by the host through a mapped
	// pointer.
	PhaseHostRead
)

func (p Phase) String() string {
	switch p {
	case PhaseHostWrite:
		return "host-write"
	case PhaseTransferWrite:
		return "transfer-write"
	case PhaseShader:
		return "shader"
	case PhaseHostRead:
		return "host-read"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// BufferAlloc is a device buffer with bound memory. Handles are opaque to
// callers; identity is meaningful (an unchanged handle means the memory was
// not reallocated).
type BufferAlloc interface {
	SizeBytes() uint64
}

// SetLayout describes the storage-buffer slots of one descriptor set.
type SetLayout interface{}

// PipelineLayout references an ordered list of set layouts.
type PipelineLayout interface{}

// Pipeline is a compiled, executable compute pipeline.
type Pipeline interface{}

// BindingSet is one transient descriptor set, valid until its pool is
// destroyed.
type BindingSet interface{}

// BindingPool owns the transient descriptor sets for a single dispatch.
type BindingPool interface {
	Sets() []BindingSet
}

// SetLayoutBinding declares one slot of a set layout. Every slot is a
// storage buffer visible to the compute stage.
type SetLayoutBinding struct {
	Binding uint32
}

// BindingWrite points one slot of a binding set at a buffer, full range.
type BindingWrite struct {
	Set     BindingSet
	Binding uint32
	Buffer  BufferAlloc
}

// Commands records work into a one-time command sequence. Recording cannot
// fail; all driver errors surface from Device.Submit.
type Commands interface {
	// FillBuffer writes zeroes over the first sizeBytes of the buffer.
	FillBuffer(buf BufferAlloc, sizeBytes uint64)
	// Barrier makes writes from the src phase visible to the dst phase for
	// every listed buffer. An empty list is a no-op.
	Barrier(bufs []BufferAlloc, src, dst Phase)
	BindPipeline(p Pipeline)
	// BindSets binds all sets in order starting at set 0. An empty list is
	// a no-op.
	BindSets(layout PipelineLayout, sets []BindingSet)
	Dispatch(x, y, z uint32)
}

// Device is the device context the flow runtime consumes. It is supplied
// fully formed; the runtime never creates or selects devices itself.
//
// All operations are synchronous. Submit is the single blocking point: it
// ends the command sequence, submits it to the compute queue, waits for the
// completion signal, and reclaims the sequence.
type Device interface {
	Name() string

	// AllocateBuffer creates a storage buffer with host-visible,
	// host-coherent memory bound to it. On failure nothing is left
	// allocated.
	AllocateBuffer(sizeBytes uint64) (BufferAlloc, error)
	DestroyBuffer(buf BufferAlloc)
	// WriteBuffer maps the buffer memory, copies data in, and unmaps. It
	// carries no device-side ordering guarantee by itself.
	WriteBuffer(buf BufferAlloc, data []byte) error
	// ReadBuffer maps the buffer memory, copies len(out) bytes out, and
	// unmaps.
	ReadBuffer(buf BufferAlloc, out []byte) error

	CreateSetLayout(bindings []SetLayoutBinding) (SetLayout, error)
	DestroySetLayout(layout SetLayout)
	CreatePipelineLayout(sets []SetLayout) (PipelineLayout, error)
	DestroyPipelineLayout(layout PipelineLayout)
	// CreateComputePipeline compiles a pipeline from a SPIR-V blob. The
	// intermediate shader module does not outlive the call.
	CreateComputePipeline(code []byte, layout PipelineLayout) (Pipeline, error)
	DestroyPipeline(p Pipeline)

	// CreateBindingPool allocates one transient binding set per layout,
	// backed by a pool sized for bindingCount storage-buffer slots.
	CreateBindingPool(sets []SetLayout, bindingCount int) (BindingPool, error)
	DestroyBindingPool(pool BindingPool)
	// WriteBindings applies all writes in one batch. Order among the
	// writes is irrelevant.
	WriteBindings(writes []BindingWrite) error

	// BeginCommands allocates a one-time command sequence from the
	// transient pool and opens it for recording.
	BeginCommands() (Commands, error)
	// Submit closes the sequence, submits it, blocks until the device
	// signals completion, and returns the sequence to the pool. The
	// sequence is reclaimed on every path, including failure.
	Submit(cmds Commands) error

	// Free releases the command pool and the device. Must be called last,
	// after every object created through this Device has been destroyed.
	Free()
}
