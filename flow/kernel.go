package flow

import (
	"os"
	"sort"

	"github.com/Manwe314/FlowVk/gpu"
	"github.com/Manwe314/FlowVk/internal/logging"
	"github.com/Manwe314/FlowVk/shadermeta"
)

// spirvWordSize is the fixed width of one instruction word in a kernel
// binary.
const spirvWordSize = 4

type kernelState struct {
	name           string
	setCount       int
	setLayouts     []gpu.SetLayout
	pipelineLayout gpu.PipelineLayout
	pipeline       gpu.Pipeline
}

// groupBySet splits a module's bindings into per-set lists indexed 0 to
// max(set). Sets with no bindings get an empty list. Within each set the
// bindings are sorted by binding index; a repeated index fails.
func groupBySet(op string, mod shadermeta.Module) ([][]shadermeta.BufferBinding, error) {
	perSet := make([][]shadermeta.BufferBinding, mod.SetCount())
	for _, b := range mod.Buffers {
		perSet[b.Set] = append(perSet[b.Set], b)
	}
	for set, bindings := range perSet {
		seen := make(map[uint32]string, len(bindings))
		for _, b := range bindings {
			if prev, ok := seen[b.Binding]; ok {
				return nil, errf(KindDuplicateBinding, op,
					"kernel %q set %d binding %d used by both %q and %q",
					mod.KernelName, set, b.Binding, prev, b.Name)
			}
			seen[b.Binding] = b.Name
		}
		sort.Slice(bindings, func(i, j int) bool {
			return bindings[i].Binding < bindings[j].Binding
		})
	}
	return perSet, nil
}

// AddKernel reads a kernel binary from path and registers it under name.
// Binding metadata is looked up from the instance's metadata table by the
// same name.
func (in *Instance) AddKernel(name, path string) error {
	const op = "kernel.add"
	if err := in.guard(op); err != nil {
		return err
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return wrapErr(KindInvalidBinary, op, err, path)
	}
	return in.AddKernelCode(name, code)
}

// AddKernelCode registers a kernel from an in-memory binary. The build is
// one shot: on any failure every partially created layout and pipeline
// object is released and the registry is left exactly as it was.
func (in *Instance) AddKernelCode(name string, code []byte) error {
	const op = "kernel.add"
	if err := in.guard(op); err != nil {
		return err
	}
	if _, ok := in.kernels[name]; ok {
		return errf(KindKernelExists, op, "kernel %q already added", name)
	}
	mod, ok := in.meta.Lookup(name)
	if !ok {
		return errf(KindMetadataNotFound, op, "no binding metadata for kernel %q", name)
	}
	if len(code) == 0 || len(code)%spirvWordSize != 0 {
		return errf(KindInvalidBinary, op,
			"kernel %q binary is %d bytes, want a non-zero multiple of %d",
			name, len(code), spirvWordSize)
	}

	perSet, err := groupBySet(op, mod)
	if err != nil {
		return err
	}

	k := &kernelState{name: name, setCount: len(perSet)}
	for _, bindings := range perSet {
		slots := make([]gpu.SetLayoutBinding, len(bindings))
		for i, b := range bindings {
			slots[i] = gpu.SetLayoutBinding{Binding: b.Binding}
		}
		layout, err := in.dev.CreateSetLayout(slots)
		if err != nil {
			in.destroyKernel(k)
			return wrapErr(KindPipelineBuild, op, err, "building binding layout")
		}
		k.setLayouts = append(k.setLayouts, layout)
	}

	k.pipelineLayout, err = in.dev.CreatePipelineLayout(k.setLayouts)
	if err != nil {
		in.destroyKernel(k)
		return wrapErr(KindPipelineBuild, op, err, "building pipeline layout")
	}

	k.pipeline, err = in.dev.CreateComputePipeline(code, k.pipelineLayout)
	if err != nil {
		in.destroyKernel(k)
		return wrapErr(KindPipelineBuild, op, err, "building compute pipeline")
	}

	in.kernels[name] = k
	logging.Debugf("added kernel %q with %d binding set(s), %d binding(s)",
		name, k.setCount, len(mod.Buffers))
	return nil
}

// destroyKernel releases whatever was built so far, pipeline first.
func (in *Instance) destroyKernel(k *kernelState) {
	if k.pipeline != nil {
		in.dev.DestroyPipeline(k.pipeline)
		k.pipeline = nil
	}
	if k.pipelineLayout != nil {
		in.dev.DestroyPipelineLayout(k.pipelineLayout)
		k.pipelineLayout = nil
	}
	for _, layout := range k.setLayouts {
		in.dev.DestroySetLayout(layout)
	}
	k.setLayouts = nil
}
