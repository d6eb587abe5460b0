package flow

import (
	"github.com/Manwe314/FlowVk/gpu"
	"github.com/Manwe314/FlowVk/internal/logging"
)

// RunKernel dispatches a registered kernel over an x by y by z grid of
// workgroups and blocks until the device has finished. By the time it
// returns, kernel writes are visible to host reads through GetBytes.
//
// The sequence is one round trip: a barrier making prior host writes
// visible to the shader, the dispatch, then a barrier making shader writes
// visible to the host. Binding sets are transient, created for this
// dispatch and released before returning.
func (in *Instance) RunKernel(name string, x, y, z uint32) error {
	const op = "kernel.run"
	if err := in.guard(op); err != nil {
		return err
	}
	if x < 1 || y < 1 || z < 1 {
		return errf(KindConfiguration, op,
			"workgroup counts must be at least 1, got %dx%dx%d", x, y, z)
	}
	k, ok := in.kernels[name]
	if !ok {
		return errf(KindUnknownKernel, op, "kernel %q was never added", name)
	}
	mod, ok := in.meta.Lookup(name)
	if !ok {
		return errf(KindMetadataNotFound, op, "no binding metadata for kernel %q", name)
	}
	if int(mod.SetCount()) != k.setCount {
		return errf(KindLayoutMismatch, op,
			"kernel %q was built with %d binding set(s) but metadata now reports %d",
			name, k.setCount, mod.SetCount())
	}

	// Resolve every metadata binding against the registry before touching
	// the device, so a missing or unsized buffer fails with nothing built.
	allocs := make([]gpu.BufferAlloc, 0, len(mod.Buffers))
	seen := make(map[string]bool, len(mod.Buffers))
	for _, b := range mod.Buffers {
		st, ok := in.buffers[b.Name]
		if !ok {
			return errf(KindMissingBuffer, op,
				"kernel %q binds buffer %q which was never declared", name, b.Name)
		}
		if st.alloc == nil {
			return errf(KindUnallocated, op,
				"kernel %q binds buffer %q which has no memory", name, b.Name)
		}
		if !seen[b.Name] {
			seen[b.Name] = true
			allocs = append(allocs, st.alloc)
		}
	}

	pool, err := in.dev.CreateBindingPool(k.setLayouts, len(mod.Buffers))
	if err != nil {
		return wrapErr(KindAllocationFailed, op, err, "allocating binding sets")
	}
	defer in.dev.DestroyBindingPool(pool)

	sets := pool.Sets()
	writes := make([]gpu.BindingWrite, 0, len(mod.Buffers))
	for _, b := range mod.Buffers {
		writes = append(writes, gpu.BindingWrite{
			Set:     sets[b.Set],
			Binding: b.Binding,
			Buffer:  in.buffers[b.Name].alloc,
		})
	}
	if err := in.dev.WriteBindings(writes); err != nil {
		return wrapErr(KindSubmission, op, err, "writing binding sets")
	}

	logging.Debugf("dispatching kernel %q over %dx%dx%d workgroups", name, x, y, z)
	return in.submitOneTime(op, func(c gpu.Commands) {
		c.Barrier(allocs, gpu.PhaseHostWrite, gpu.PhaseShader)
		c.BindPipeline(k.pipeline)
		c.BindSets(k.pipelineLayout, sets)
		c.Dispatch(x, y, z)
		c.Barrier(allocs, gpu.PhaseShader, gpu.PhaseHostRead)
	})
}
