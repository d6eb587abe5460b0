package gpu

import (
	"errors"
	"fmt"
)

// FakeDevice is an in-memory Device for tests. Buffers are byte slices,
// layouts and pipelines are inert records, and Submit interprets the
// recorded commands: fills zero memory, barriers and binds are logged, and
// dispatches invoke an optional DispatchFunc so a test can stand in for a
// kernel.
//
// The alive counters and the submission counter make resource leaks,
// rollback behavior, and no-submission guarantees observable.
type FakeDevice struct {
	// Submissions counts completed Submit calls.
	Submissions int
	// LastSubmission describes the ops of the most recent Submit, in
	// recorded order.
	LastSubmission []string

	// DispatchFunc, when set, runs for every dispatch with the state bound
	// at that point in the sequence.
	DispatchFunc func(ev DispatchEvent)

	// Failure injection.
	FailAllocation     bool
	FailSetLayoutAt    int // fail the Nth CreateSetLayout call (1-based), 0 = never
	FailPipelineLayout bool
	FailPipeline       bool
	FailSubmit         bool

	// Alive counters.
	BuffersAlive         int
	SetLayoutsAlive      int
	PipelineLayoutsAlive int
	PipelinesAlive       int
	PoolsAlive           int
	Freed                bool

	setLayoutCalls int
}

// NewFakeDevice returns an empty fake device.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{}
}

func (d *FakeDevice) Name() string { return "fake" }

// FakeBuffer is the fake's buffer allocation. Tests may inspect or seed its
// contents directly through Bytes.
type FakeBuffer struct {
	data      []byte
	destroyed bool
}

func (b *FakeBuffer) SizeBytes() uint64 { return uint64(len(b.data)) }

// Bytes exposes the backing storage.
func (b *FakeBuffer) Bytes() []byte { return b.data }

func (d *FakeDevice) AllocateBuffer(sizeBytes uint64) (BufferAlloc, error) {
	if d.FailAllocation {
		return nil, errors.New("fake: allocation rejected")
	}
	d.BuffersAlive++
	return &FakeBuffer{data: make([]byte, sizeBytes)}, nil
}

func (d *FakeDevice) DestroyBuffer(buf BufferAlloc) {
	b := buf.(*FakeBuffer)
	if !b.destroyed {
		b.destroyed = true
		d.BuffersAlive--
	}
}

func (d *FakeDevice) WriteBuffer(buf BufferAlloc, data []byte) error {
	b := buf.(*FakeBuffer)
	if b.destroyed {
		return errors.New("fake: write to destroyed buffer")
	}
	if len(data) > len(b.data) {
		return fmt.Errorf("fake: write of %d bytes into %d byte buffer", len(data), len(b.data))
	}
	copy(b.data, data)
	return nil
}

func (d *FakeDevice) ReadBuffer(buf BufferAlloc, out []byte) error {
	b := buf.(*FakeBuffer)
	if b.destroyed {
		return errors.New("fake: read from destroyed buffer")
	}
	if len(out) > len(b.data) {
		return fmt.Errorf("fake: read of %d bytes from %d byte buffer", len(out), len(b.data))
	}
	copy(out, b.data)
	return nil
}

type fakeSetLayout struct {
	bindings []SetLayoutBinding
}

func (d *FakeDevice) CreateSetLayout(bindings []SetLayoutBinding) (SetLayout, error) {
	d.setLayoutCalls++
	if d.FailSetLayoutAt != 0 && d.setLayoutCalls == d.FailSetLayoutAt {
		return nil, errors.New("fake: set layout creation rejected")
	}
	d.SetLayoutsAlive++
	return &fakeSetLayout{bindings: append([]SetLayoutBinding(nil), bindings...)}, nil
}

func (d *FakeDevice) DestroySetLayout(layout SetLayout) {
	d.SetLayoutsAlive--
}

type fakePipelineLayout struct {
	sets []SetLayout
}

func (d *FakeDevice) CreatePipelineLayout(sets []SetLayout) (PipelineLayout, error) {
	if d.FailPipelineLayout {
		return nil, errors.New("fake: pipeline layout creation rejected")
	}
	d.PipelineLayoutsAlive++
	return &fakePipelineLayout{sets: append([]SetLayout(nil), sets...)}, nil
}

func (d *FakeDevice) DestroyPipelineLayout(layout PipelineLayout) {
	d.PipelineLayoutsAlive--
}

// FakePipeline records the SPIR-V blob it was built from.
type FakePipeline struct {
	Code []byte
}

func (d *FakeDevice) CreateComputePipeline(code []byte, layout PipelineLayout) (Pipeline, error) {
	if d.FailPipeline {
		return nil, errors.New("fake: pipeline build rejected")
	}
	d.PipelinesAlive++
	return &FakePipeline{Code: append([]byte(nil), code...)}, nil
}

func (d *FakeDevice) DestroyPipeline(p Pipeline) {
	d.PipelinesAlive--
}

type fakeSet struct {
	bound map[uint32]*FakeBuffer
}

type fakePool struct {
	sets []BindingSet
}

func (p *fakePool) Sets() []BindingSet { return p.sets }

func (d *FakeDevice) CreateBindingPool(sets []SetLayout, bindingCount int) (BindingPool, error) {
	pool := &fakePool{}
	for range sets {
		pool.sets = append(pool.sets, &fakeSet{bound: map[uint32]*FakeBuffer{}})
	}
	d.PoolsAlive++
	return pool, nil
}

func (d *FakeDevice) DestroyBindingPool(pool BindingPool) {
	d.PoolsAlive--
}

func (d *FakeDevice) WriteBindings(writes []BindingWrite) error {
	for _, w := range writes {
		set := w.Set.(*fakeSet)
		set.bound[w.Binding] = w.Buffer.(*FakeBuffer)
	}
	return nil
}

// DispatchEvent is passed to DispatchFunc with the pipeline and binding
// sets bound at the dispatch.
type DispatchEvent struct {
	Pipeline *FakePipeline
	Sets     []BindingSet
	X, Y, Z  uint32
}

// Buffer returns the buffer bound at (set, binding), or nil.
func (ev DispatchEvent) Buffer(set int, binding uint32) *FakeBuffer {
	if set >= len(ev.Sets) {
		return nil
	}
	return ev.Sets[set].(*fakeSet).bound[binding]
}

type fakeOp struct {
	desc string
	run  func(st *fakeExecState)
}

type fakeExecState struct {
	pipeline *FakePipeline
	sets     []BindingSet
}

type fakeCommands struct {
	dev *FakeDevice
	ops []fakeOp
}

func (c *fakeCommands) FillBuffer(buf BufferAlloc, sizeBytes uint64) {
	b := buf.(*FakeBuffer)
	c.ops = append(c.ops, fakeOp{
		desc: fmt.Sprintf("fill %d", sizeBytes),
		run: func(st *fakeExecState) {
			n := sizeBytes
			if n > uint64(len(b.data)) {
				n = uint64(len(b.data))
			}
			for i := uint64(0); i < n; i++ {
				b.data[i] = 0
			}
		},
	})
}

func (c *fakeCommands) Barrier(bufs []BufferAlloc, src, dst Phase) {
	if len(bufs) == 0 {
		return
	}
	c.ops = append(c.ops, fakeOp{
		desc: fmt.Sprintf("barrier %s->%s x%d", src, dst, len(bufs)),
		run:  func(st *fakeExecState) {},
	})
}

func (c *fakeCommands) BindPipeline(p Pipeline) {
	fp := p.(*FakePipeline)
	c.ops = append(c.ops, fakeOp{
		desc: "bind-pipeline",
		run:  func(st *fakeExecState) { st.pipeline = fp },
	})
}

func (c *fakeCommands) BindSets(layout PipelineLayout, sets []BindingSet) {
	if len(sets) == 0 {
		return
	}
	bound := append([]BindingSet(nil), sets...)
	c.ops = append(c.ops, fakeOp{
		desc: fmt.Sprintf("bind-sets %d", len(sets)),
		run:  func(st *fakeExecState) { st.sets = bound },
	})
}

func (c *fakeCommands) Dispatch(x, y, z uint32) {
	dev := c.dev
	c.ops = append(c.ops, fakeOp{
		desc: fmt.Sprintf("dispatch %dx%dx%d", x, y, z),
		run: func(st *fakeExecState) {
			if dev.DispatchFunc != nil {
				dev.DispatchFunc(DispatchEvent{
					Pipeline: st.pipeline,
					Sets:     st.sets,
					X:        x, Y: y, Z: z,
				})
			}
		},
	})
}

func (d *FakeDevice) BeginCommands() (Commands, error) {
	return &fakeCommands{dev: d}, nil
}

func (d *FakeDevice) Submit(cmds Commands) error {
	c := cmds.(*fakeCommands)
	if d.FailSubmit {
		return errors.New("fake: submission rejected")
	}
	var st fakeExecState
	var log []string
	for _, op := range c.ops {
		op.run(&st)
		log = append(log, op.desc)
	}
	d.LastSubmission = log
	d.Submissions++
	return nil
}

func (d *FakeDevice) Free() {
	d.Freed = true
}
