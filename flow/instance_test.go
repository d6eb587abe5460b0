package flow

import (
	"testing"

	"github.com/Manwe314/FlowVk/gpu"
	"github.com/Manwe314/FlowVk/shadermeta"
)

// testCode is a minimal word-aligned stand-in for a kernel binary.
var testCode = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func testMeta(mods ...shadermeta.Module) shadermeta.Table {
	t := shadermeta.Table{}
	for _, m := range mods {
		t.Add(m)
	}
	return t
}

func copyMeta() shadermeta.Table {
	return testMeta(shadermeta.Module{
		KernelName: "copy",
		Buffers: []shadermeta.BufferBinding{
			{Name: "A", TypeName: "float", Access: shadermeta.ReadOnly, Layout: shadermeta.Std430, Set: 0, Binding: 0},
			{Name: "B", TypeName: "float", Access: shadermeta.WriteOnly, Layout: shadermeta.Std430, Set: 0, Binding: 1},
		},
	})
}

func TestCloseReleasesEverything(t *testing.T) {
	dev := gpu.NewFakeDevice()
	in := New(dev, copyMeta())

	if _, err := in.ReadOnlyBuffer("A", 16); err != nil {
		t.Fatalf("declare A: %v", err)
	}
	if _, err := in.WriteOnlyBuffer("B", 16); err != nil {
		t.Fatalf("declare B: %v", err)
	}
	if err := in.AddKernelCode("copy", testCode); err != nil {
		t.Fatalf("add kernel: %v", err)
	}

	in.Close()

	if dev.BuffersAlive != 0 {
		t.Errorf("buffers alive after close: %d", dev.BuffersAlive)
	}
	if dev.SetLayoutsAlive != 0 || dev.PipelineLayoutsAlive != 0 || dev.PipelinesAlive != 0 {
		t.Errorf("kernel objects alive after close: %d/%d/%d",
			dev.SetLayoutsAlive, dev.PipelineLayoutsAlive, dev.PipelinesAlive)
	}
	if !dev.Freed {
		t.Error("device was not freed")
	}

	// Closing twice is harmless, using a closed instance is not.
	in.Close()
	if _, err := in.ReadOnlyBuffer("C", 4); !IsKind(err, KindConfiguration) {
		t.Errorf("declare after close: got %v, want configuration error", err)
	}
	if err := in.RunKernel("copy", 1, 1, 1); !IsKind(err, KindConfiguration) {
		t.Errorf("run after close: got %v, want configuration error", err)
	}
}

func TestKindOf(t *testing.T) {
	dev := gpu.NewFakeDevice()
	in := New(dev, nil)

	_, err := in.DeclareBuffer("", ReadOnly, 0)
	if err == nil {
		t.Fatal("empty name accepted")
	}
	kind, ok := KindOf(err)
	if !ok || kind != KindConfiguration {
		t.Errorf("KindOf = %v, %v; want %v, true", kind, ok, KindConfiguration)
	}
	if IsKind(err, KindAccessMismatch) {
		t.Error("IsKind matched the wrong kind")
	}
}
