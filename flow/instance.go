// Package flow is the named-buffer and kernel-dispatch engine. An Instance
// owns a registry of named device buffers and a registry of compiled
// compute kernels, and runs single synchronous dispatches with the memory
// barriers needed for host writes to reach the kernel and kernel writes to
// reach the host.
package flow

import (
	"github.com/Manwe314/FlowVk/gpu"
	"github.com/Manwe314/FlowVk/internal/logging"
	"github.com/Manwe314/FlowVk/shadermeta"
)

// Instance is the owning context for buffers and kernels. It consumes a
// fully formed gpu.Device and a read-only binding metadata table; it never
// creates or selects devices itself.
//
// All operations are synchronous and assume a single logical caller.
// Instance adds no internal locking; concurrent callers must serialize.
type Instance struct {
	dev     gpu.Device
	meta    shadermeta.Table
	buffers map[string]*bufferState
	kernels map[string]*kernelState
	closed  bool
}

// New builds an Instance on the given device. meta supplies binding
// metadata for AddKernel lookups; a nil table is valid and simply makes
// every kernel add fail its metadata lookup.
func New(dev gpu.Device, meta shadermeta.Table) *Instance {
	return &Instance{
		dev:     dev,
		meta:    meta,
		buffers: make(map[string]*bufferState),
		kernels: make(map[string]*kernelState),
	}
}

// DeviceName reports the underlying device's name.
func (in *Instance) DeviceName() string { return in.dev.Name() }

func (in *Instance) guard(op string) error {
	if in.closed {
		return errf(KindConfiguration, op, "instance is closed")
	}
	return nil
}

// Close tears the instance down: kernels and their layouts first, then
// buffers, then the device itself. Safe to call more than once; operations
// after Close fail with a configuration error.
func (in *Instance) Close() {
	if in.closed {
		return
	}
	in.closed = true

	for name, k := range in.kernels {
		in.destroyKernel(k)
		delete(in.kernels, name)
		logging.Debugf("destroyed kernel %q", name)
	}
	for name, b := range in.buffers {
		if b.alloc != nil {
			in.dev.DestroyBuffer(b.alloc)
			b.alloc = nil
		}
		delete(in.buffers, name)
	}
	in.dev.Free()
	logging.Debug("instance closed")
}
