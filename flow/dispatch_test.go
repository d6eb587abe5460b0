package flow

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/Manwe314/FlowVk/gpu"
	"github.com/Manwe314/FlowVk/shadermeta"
)

func TestRunUnknownKernel(t *testing.T) {
	dev := gpu.NewFakeDevice()
	in := New(dev, copyMeta())
	defer in.Close()

	if err := in.RunKernel("copy", 1, 1, 1); !IsKind(err, KindUnknownKernel) {
		t.Fatalf("got %v, want unknown kernel", err)
	}
	if dev.Submissions != 0 {
		t.Errorf("submissions: %d, want 0", dev.Submissions)
	}
}

func TestRunWorkgroupCounts(t *testing.T) {
	in := New(gpu.NewFakeDevice(), copyMeta())
	defer in.Close()

	for _, wg := range [][3]uint32{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}} {
		if err := in.RunKernel("copy", wg[0], wg[1], wg[2]); !IsKind(err, KindConfiguration) {
			t.Errorf("workgroups %v: got %v, want configuration error", wg, err)
		}
	}
}

func TestRunMissingBuffer(t *testing.T) {
	dev := gpu.NewFakeDevice()
	in := New(dev, copyMeta())
	defer in.Close()

	a, err := in.ReadOnlyBuffer("A", 16)
	if err != nil {
		t.Fatalf("declare A: %v", err)
	}
	if err := a.SetBytes(sequence(16)); err != nil {
		t.Fatalf("write A: %v", err)
	}
	if err := in.AddKernelCode("copy", testCode); err != nil {
		t.Fatalf("add kernel: %v", err)
	}

	// B is in the metadata but never declared.
	if err := in.RunKernel("copy", 1, 1, 1); !IsKind(err, KindMissingBuffer) {
		t.Fatalf("got %v, want missing buffer", err)
	}
	if dev.Submissions != 0 {
		t.Errorf("submissions: %d, want 0", dev.Submissions)
	}

	// The kernel and the declared buffer survive the failure.
	got := make([]byte, 16)
	if err := a.GetBytes(got); err != nil || !bytes.Equal(got, sequence(16)) {
		t.Errorf("buffer A after failed run: %v, %v", got, err)
	}
	if _, ok := in.kernels["copy"]; !ok {
		t.Error("kernel vanished after failed run")
	}
}

func TestRunUnallocatedBuffer(t *testing.T) {
	dev := gpu.NewFakeDevice()
	in := New(dev, copyMeta())
	defer in.Close()

	if _, err := in.ReadOnlyBuffer("A", 16); err != nil {
		t.Fatalf("declare A: %v", err)
	}
	if _, err := in.WriteOnlyBuffer("B", 0); err != nil {
		t.Fatalf("declare B: %v", err)
	}
	if err := in.AddKernelCode("copy", testCode); err != nil {
		t.Fatalf("add kernel: %v", err)
	}

	if err := in.RunKernel("copy", 1, 1, 1); !IsKind(err, KindUnallocated) {
		t.Fatalf("got %v, want unallocated", err)
	}
	if dev.Submissions != 0 {
		t.Errorf("submissions: %d, want 0", dev.Submissions)
	}
}

func TestRunLayoutMismatch(t *testing.T) {
	meta := copyMeta()
	in := New(gpu.NewFakeDevice(), meta)
	defer in.Close()

	if _, err := in.ReadOnlyBuffer("A", 16); err != nil {
		t.Fatalf("declare A: %v", err)
	}
	if _, err := in.WriteOnlyBuffer("B", 16); err != nil {
		t.Fatalf("declare B: %v", err)
	}
	if err := in.AddKernelCode("copy", testCode); err != nil {
		t.Fatalf("add kernel: %v", err)
	}

	// Metadata drifts after the kernel was built.
	mod, _ := meta.Lookup("copy")
	mod.Buffers = append(mod.Buffers, shadermeta.BufferBinding{Name: "C", Set: 1, Binding: 0})
	meta.Add(mod)

	if err := in.RunKernel("copy", 1, 1, 1); !IsKind(err, KindLayoutMismatch) {
		t.Fatalf("got %v, want layout mismatch", err)
	}
}

// The full path: host write, barrier, bind, dispatch, barrier, host read.
func TestRunKernelCopyEndToEnd(t *testing.T) {
	dev := gpu.NewFakeDevice()
	dev.DispatchFunc = func(ev gpu.DispatchEvent) {
		src := ev.Buffer(0, 0)
		dst := ev.Buffer(0, 1)
		if src == nil || dst == nil {
			t.Fatal("dispatch ran with unbound buffers")
		}
		copy(dst.Bytes(), src.Bytes())
	}
	in := New(dev, copyMeta())
	defer in.Close()

	a, err := in.ReadOnlyBuffer("A", 16)
	if err != nil {
		t.Fatalf("declare A: %v", err)
	}
	if err := a.SetBytes(sequence(16)); err != nil {
		t.Fatalf("write A: %v", err)
	}
	b, err := in.WriteOnlyBuffer("B", 16)
	if err != nil {
		t.Fatalf("declare B: %v", err)
	}
	if err := in.AddKernelCode("copy", testCode); err != nil {
		t.Fatalf("add kernel: %v", err)
	}

	if err := in.RunKernel("copy", 1, 1, 1); err != nil {
		t.Fatalf("run kernel: %v", err)
	}

	got := make([]byte, 16)
	if err := b.GetBytes(got); err != nil {
		t.Fatalf("read B: %v", err)
	}
	if !bytes.Equal(got, sequence(16)) {
		t.Errorf("B after copy: %v, want %v", got, sequence(16))
	}

	if dev.Submissions != 1 {
		t.Errorf("submissions: %d, want 1", dev.Submissions)
	}
	want := []string{
		"barrier host-write->shader x2",
		"bind-pipeline",
		"bind-sets 1",
		"dispatch 1x1x1",
		"barrier shader->host-read x2",
	}
	if !reflect.DeepEqual(dev.LastSubmission, want) {
		t.Errorf("recorded sequence %v, want %v", dev.LastSubmission, want)
	}
	if dev.PoolsAlive != 0 {
		t.Errorf("binding pools alive after run: %d, want 0", dev.PoolsAlive)
	}
}

func TestRunSubmitFailureReleasesPool(t *testing.T) {
	dev := gpu.NewFakeDevice()
	in := New(dev, copyMeta())
	defer in.Close()

	if _, err := in.ReadOnlyBuffer("A", 16); err != nil {
		t.Fatalf("declare A: %v", err)
	}
	if _, err := in.WriteOnlyBuffer("B", 16); err != nil {
		t.Fatalf("declare B: %v", err)
	}
	if err := in.AddKernelCode("copy", testCode); err != nil {
		t.Fatalf("add kernel: %v", err)
	}

	dev.FailSubmit = true
	if err := in.RunKernel("copy", 1, 1, 1); !IsKind(err, KindSubmission) {
		t.Fatalf("got %v, want submission failed", err)
	}
	if dev.PoolsAlive != 0 {
		t.Errorf("binding pools alive after failed run: %d, want 0", dev.PoolsAlive)
	}
}
