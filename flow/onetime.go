package flow

import "github.com/Manwe314/FlowVk/gpu"

// submitOneTime allocates a transient command sequence, lets record append
// commands into it, submits it to the compute queue, and blocks until the
// device signals completion. The sequence is reclaimed on every path.
// Recording itself cannot fail; allocation and submission failures
// propagate as submission errors and are never retried here.
func (in *Instance) submitOneTime(op string, record func(gpu.Commands)) error {
	cmds, err := in.dev.BeginCommands()
	if err != nil {
		return wrapErr(KindSubmission, op, err, "allocating command sequence")
	}
	record(cmds)
	if err := in.dev.Submit(cmds); err != nil {
		return wrapErr(KindSubmission, op, err, "submitting to compute queue")
	}
	return nil
}
