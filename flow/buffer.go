package flow

import (
	"github.com/Manwe314/FlowVk/gpu"
	"github.com/Manwe314/FlowVk/internal/logging"
	"github.com/Manwe314/FlowVk/shadermeta"
)

// Access is the kernel-side access mode of a buffer.
type Access = shadermeta.Access

const (
	ReadOnly  = shadermeta.ReadOnly
	WriteOnly = shadermeta.WriteOnly
	ReadWrite = shadermeta.ReadWrite
)

type bufferState struct {
	name   string
	access Access
	size   uint64
	alloc  gpu.BufferAlloc
}

// Buffer is a caller-side handle to one named registry entry. Handles stay
// valid across resizes; they name the entry, not the memory.
type Buffer struct {
	in    *Instance
	state *bufferState
}

func (b *Buffer) Name() string      { return b.state.name }
func (b *Buffer) Access() Access    { return b.state.access }
func (b *Buffer) SizeBytes() uint64 { return b.state.size }

// declare is idempotent for a matching access mode. A name, once declared,
// keeps its access mode for the life of the instance.
func (in *Instance) declare(op, name string, access Access) (*bufferState, error) {
	if err := in.guard(op); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errf(KindConfiguration, op, "buffer name is empty")
	}
	if st, ok := in.buffers[name]; ok {
		if st.access != access {
			return nil, errf(KindAccessMismatch, op,
				"buffer %q is %s, redeclared as %s", name, st.access, access)
		}
		return st, nil
	}
	st := &bufferState{name: name, access: access}
	in.buffers[name] = st
	logging.Debugf("declared buffer %q (%s)", name, access)
	return st, nil
}

// allocOrResize reallocates the entry's memory to exactly newSize bytes.
// Size zero is a no-op, as is resizing to the current size when memory
// already exists. New memory is allocated before the old is destroyed so a
// failed allocation leaves the previous memory intact.
func (in *Instance) allocOrResize(op string, st *bufferState, newSize uint64) error {
	if newSize == 0 {
		return nil
	}
	if newSize == st.size && st.alloc != nil {
		return nil
	}
	alloc, err := in.dev.AllocateBuffer(newSize)
	if err != nil {
		return wrapErr(KindAllocationFailed, op, err, st.name)
	}
	if st.alloc != nil {
		in.dev.DestroyBuffer(st.alloc)
	}
	st.alloc = alloc
	st.size = newSize
	logging.Debugf("buffer %q sized to %d bytes", st.name, newSize)
	return nil
}

// DeclareBuffer declares (or re-finds) a named buffer and ensures it is
// sized to sizeBytes. Redeclaring with the same access mode is idempotent;
// a different access mode fails. sizeBytes zero declares without
// allocating.
func (in *Instance) DeclareBuffer(name string, access Access, sizeBytes uint64) (*Buffer, error) {
	const op = "buffer.declare"
	st, err := in.declare(op, name, access)
	if err != nil {
		return nil, err
	}
	if err := in.allocOrResize(op, st, sizeBytes); err != nil {
		return nil, err
	}
	return &Buffer{in: in, state: st}, nil
}

// ReadOnlyBuffer declares a buffer the kernels only read.
func (in *Instance) ReadOnlyBuffer(name string, sizeBytes uint64) (*Buffer, error) {
	return in.DeclareBuffer(name, ReadOnly, sizeBytes)
}

// WriteOnlyBuffer declares a buffer the kernels only write.
func (in *Instance) WriteOnlyBuffer(name string, sizeBytes uint64) (*Buffer, error) {
	return in.DeclareBuffer(name, WriteOnly, sizeBytes)
}

// ReadWriteBuffer declares a buffer the kernels both read and write.
func (in *Instance) ReadWriteBuffer(name string, sizeBytes uint64) (*Buffer, error) {
	return in.DeclareBuffer(name, ReadWrite, sizeBytes)
}

// Resize sets the buffer to exactly sizeBytes. Resizing to the current
// size keeps the existing memory and its contents; any reallocation
// discards prior contents. Size zero is a no-op. zeroInit clears the
// buffer device-side after the resize.
func (b *Buffer) Resize(sizeBytes uint64, zeroInit bool) error {
	const op = "buffer.resize"
	if err := b.in.guard(op); err != nil {
		return err
	}
	if err := b.in.allocOrResize(op, b.state, sizeBytes); err != nil {
		return err
	}
	if zeroInit && b.state.alloc != nil {
		return b.ZeroFill()
	}
	return nil
}

// SetBytes copies data into the buffer through a host mapping.
func (b *Buffer) SetBytes(data []byte) error {
	const op = "buffer.write"
	if err := b.in.guard(op); err != nil {
		return err
	}
	st := b.state
	if st.alloc == nil {
		return errf(KindUnallocated, op, "buffer %q has no memory", st.name)
	}
	if uint64(len(data)) > st.size {
		return errf(KindSizeExceeded, op,
			"write of %d bytes exceeds buffer %q size %d", len(data), st.name, st.size)
	}
	if err := b.in.dev.WriteBuffer(st.alloc, data); err != nil {
		return wrapErr(KindAllocationFailed, op, err, "mapping device memory")
	}
	return nil
}

// GetBytes copies len(out) bytes from the buffer through a host mapping.
// It is only guaranteed to observe kernel writes that a prior RunKernel or
// ZeroFill call has already fenced.
func (b *Buffer) GetBytes(out []byte) error {
	const op = "buffer.read"
	if err := b.in.guard(op); err != nil {
		return err
	}
	st := b.state
	if st.alloc == nil {
		return errf(KindUnallocated, op, "buffer %q has no memory", st.name)
	}
	if uint64(len(out)) > st.size {
		return errf(KindSizeExceeded, op,
			"read of %d bytes exceeds buffer %q size %d", len(out), st.name, st.size)
	}
	if err := b.in.dev.ReadBuffer(st.alloc, out); err != nil {
		return wrapErr(KindAllocationFailed, op, err, "mapping device memory")
	}
	return nil
}

// ZeroFill clears the buffer with a device-side fill. The fill is fenced
// so a following host read or kernel dispatch observes zeroes.
func (b *Buffer) ZeroFill() error {
	const op = "buffer.zerofill"
	if err := b.in.guard(op); err != nil {
		return err
	}
	st := b.state
	if st.alloc == nil {
		return errf(KindUnallocated, op, "buffer %q has no memory", st.name)
	}
	return b.in.submitOneTime(op, func(c gpu.Commands) {
		c.FillBuffer(st.alloc, st.size)
		c.Barrier([]gpu.BufferAlloc{st.alloc}, gpu.PhaseTransferWrite, gpu.PhaseShader)
	})
}
