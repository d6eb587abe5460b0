package flow

import (
	"bytes"
	"testing"

	"github.com/Manwe314/FlowVk/gpu"
)

func sequence(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i + 1)
	}
	return out
}

func TestDeclareIdempotent(t *testing.T) {
	in := New(gpu.NewFakeDevice(), nil)
	defer in.Close()

	a, err := in.ReadOnlyBuffer("lhs", 16)
	if err != nil {
		t.Fatalf("first declare: %v", err)
	}
	b, err := in.ReadOnlyBuffer("lhs", 16)
	if err != nil {
		t.Fatalf("second declare: %v", err)
	}
	if a.state != b.state {
		t.Error("redeclaring with the same access produced a different entry")
	}

	if _, err := in.WriteOnlyBuffer("lhs", 16); !IsKind(err, KindAccessMismatch) {
		t.Errorf("redeclare with different access: got %v, want access mismatch", err)
	}
}

func TestDeclareKeepsSizeUntilResize(t *testing.T) {
	in := New(gpu.NewFakeDevice(), nil)
	defer in.Close()

	if _, err := in.ReadWriteBuffer("acc", 64); err != nil {
		t.Fatalf("declare: %v", err)
	}
	// Redeclaring with a different requested size keeps the old size; only
	// an explicit Resize changes it.
	b, err := in.ReadWriteBuffer("acc", 64)
	if err != nil {
		t.Fatalf("redeclare: %v", err)
	}
	if b.SizeBytes() != 64 {
		t.Errorf("size after redeclare: %d, want 64", b.SizeBytes())
	}
}

func TestResizeSameSizeKeepsMemory(t *testing.T) {
	in := New(gpu.NewFakeDevice(), nil)
	defer in.Close()

	b, err := in.ReadWriteBuffer("data", 16)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	want := sequence(16)
	if err := b.SetBytes(want); err != nil {
		t.Fatalf("write: %v", err)
	}
	before := b.state.alloc

	if err := b.Resize(16, false); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if b.state.alloc != before {
		t.Error("resize to the current size reallocated")
	}
	got := make([]byte, 16)
	if err := b.GetBytes(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("contents after same-size resize: %v, want %v", got, want)
	}
}

// Resizing to zero is a no-op: the buffer keeps its memory, size, and
// contents. Only a resize to a different non-zero size reallocates.
func TestResizeToZeroIsNoOp(t *testing.T) {
	in := New(gpu.NewFakeDevice(), nil)
	defer in.Close()

	b, err := in.ReadWriteBuffer("data", 16)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	if err := b.SetBytes(sequence(16)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := b.Resize(0, false); err != nil {
		t.Fatalf("resize to zero: %v", err)
	}
	if b.SizeBytes() != 16 {
		t.Errorf("size after zero resize: %d, want 16", b.SizeBytes())
	}
	got := make([]byte, 16)
	if err := b.GetBytes(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, sequence(16)) {
		t.Error("zero resize discarded contents")
	}
}

func TestResizeReallocationDiscardsContents(t *testing.T) {
	dev := gpu.NewFakeDevice()
	in := New(dev, nil)
	defer in.Close()

	b, err := in.ReadWriteBuffer("data", 16)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	if err := b.SetBytes(sequence(16)); err != nil {
		t.Fatalf("write: %v", err)
	}
	before := b.state.alloc

	if err := b.Resize(32, false); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if b.state.alloc == before {
		t.Error("resize to a new size kept the old memory")
	}
	if b.SizeBytes() != 32 {
		t.Errorf("size after resize: %d, want 32", b.SizeBytes())
	}
	if dev.BuffersAlive != 1 {
		t.Errorf("buffers alive after resize: %d, want 1", dev.BuffersAlive)
	}
	got := make([]byte, 32)
	if err := b.GetBytes(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, make([]byte, 32)) {
		t.Error("reallocated buffer carried over old contents")
	}
}

func TestResizeFailureKeepsOldMemory(t *testing.T) {
	dev := gpu.NewFakeDevice()
	in := New(dev, nil)
	defer in.Close()

	b, err := in.ReadWriteBuffer("data", 16)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	want := sequence(16)
	if err := b.SetBytes(want); err != nil {
		t.Fatalf("write: %v", err)
	}

	dev.FailAllocation = true
	if err := b.Resize(32, false); !IsKind(err, KindAllocationFailed) {
		t.Fatalf("resize under allocation failure: got %v, want allocation failed", err)
	}
	dev.FailAllocation = false

	if b.SizeBytes() != 16 {
		t.Errorf("size after failed resize: %d, want 16", b.SizeBytes())
	}
	got := make([]byte, 16)
	if err := b.GetBytes(got); err != nil {
		t.Fatalf("read after failed resize: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("failed resize damaged the old contents")
	}
	if dev.BuffersAlive != 1 {
		t.Errorf("buffers alive: %d, want 1", dev.BuffersAlive)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	in := New(gpu.NewFakeDevice(), nil)
	defer in.Close()

	b, err := in.ReadWriteBuffer("data", 64)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	want := sequence(64)
	if err := b.SetBytes(want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := make([]byte, 64)
	if err := b.GetBytes(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("round trip mismatch: got %v, want %v", got, want)
	}
}

func TestTransferBounds(t *testing.T) {
	in := New(gpu.NewFakeDevice(), nil)
	defer in.Close()

	unsized, err := in.ReadOnlyBuffer("unsized", 0)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	if err := unsized.SetBytes([]byte{1}); !IsKind(err, KindUnallocated) {
		t.Errorf("write to unsized buffer: got %v, want unallocated", err)
	}
	if err := unsized.GetBytes(make([]byte, 1)); !IsKind(err, KindUnallocated) {
		t.Errorf("read from unsized buffer: got %v, want unallocated", err)
	}
	if err := unsized.ZeroFill(); !IsKind(err, KindUnallocated) {
		t.Errorf("zero fill of unsized buffer: got %v, want unallocated", err)
	}

	sized, err := in.ReadOnlyBuffer("sized", 8)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	if err := sized.SetBytes(make([]byte, 9)); !IsKind(err, KindSizeExceeded) {
		t.Errorf("oversized write: got %v, want size exceeded", err)
	}
	if err := sized.GetBytes(make([]byte, 9)); !IsKind(err, KindSizeExceeded) {
		t.Errorf("oversized read: got %v, want size exceeded", err)
	}
}

func TestZeroFill(t *testing.T) {
	dev := gpu.NewFakeDevice()
	in := New(dev, nil)
	defer in.Close()

	b, err := in.ReadWriteBuffer("data", 16)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	if err := b.SetBytes(sequence(16)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := b.ZeroFill(); err != nil {
		t.Fatalf("zero fill: %v", err)
	}
	got := make([]byte, 16)
	if err := b.GetBytes(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, make([]byte, 16)) {
		t.Errorf("contents after zero fill: %v, want all zeroes", got)
	}
	if dev.Submissions != 1 {
		t.Errorf("submissions: %d, want 1 (zero fill is device-side)", dev.Submissions)
	}
	if len(dev.LastSubmission) != 2 ||
		dev.LastSubmission[0] != "fill 16" ||
		dev.LastSubmission[1] != "barrier transfer-write->shader x1" {
		t.Errorf("zero fill recorded %v", dev.LastSubmission)
	}
}

func TestResizeZeroInit(t *testing.T) {
	dev := gpu.NewFakeDevice()
	in := New(dev, nil)
	defer in.Close()

	b, err := in.ReadWriteBuffer("data", 16)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	if err := b.SetBytes(sequence(16)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := b.Resize(16, true); err != nil {
		t.Fatalf("resize: %v", err)
	}
	got := make([]byte, 16)
	if err := b.GetBytes(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, make([]byte, 16)) {
		t.Error("zero-init resize left old contents")
	}
}
