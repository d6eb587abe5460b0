package shadermeta

import (
	"path/filepath"
	"testing"
)

func TestParseAccess(t *testing.T) {
	cases := []struct {
		in   string
		want Access
		ok   bool
	}{
		{"read_only", ReadOnly, true},
		{"readonly", ReadOnly, true},
		{"read-only", ReadOnly, true},
		{"write_only", WriteOnly, true},
		{"read_write", ReadWrite, true},
		{"readwrite", ReadWrite, true},
		{"rw", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseAccess(tc.in)
		if tc.ok && err != nil {
			t.Errorf("ParseAccess(%q) failed: %v", tc.in, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("ParseAccess(%q) should have failed", tc.in)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAccess(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSetCount(t *testing.T) {
	cases := []struct {
		name string
		sets []uint32
		want uint32
	}{
		{"empty", nil, 0},
		{"single set", []uint32{0, 0, 0}, 1},
		{"dense", []uint32{0, 1, 1, 2}, 3},
		{"sparse keeps gaps", []uint32{0, 2}, 3},
		{"only high set", []uint32{3}, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Module{KernelName: "k"}
			for i, s := range tc.sets {
				m.Buffers = append(m.Buffers, BufferBinding{
					Name:    "b",
					Set:     s,
					Binding: uint32(i),
				})
			}
			if got := m.SetCount(); got != tc.want {
				t.Errorf("SetCount() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestModuleFileRoundTrip(t *testing.T) {
	m := Module{
		KernelName: "saxpy",
		Buffers: []BufferBinding{
			{Name: "x", TypeName: "float", Access: ReadOnly, Layout: Std430, Set: 0, Binding: 0},
			{Name: "y", TypeName: "float", Access: ReadWrite, Layout: Std430, Set: 0, Binding: 1},
		},
	}

	path := filepath.Join(t.TempDir(), "saxpy.json")
	if err := WriteModule(path, m); err != nil {
		t.Fatalf("WriteModule failed: %v", err)
	}

	got, err := LoadModule(path)
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	if got.KernelName != m.KernelName || len(got.Buffers) != len(m.Buffers) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Buffers[1].Access != ReadWrite || got.Buffers[1].Layout != Std430 {
		t.Errorf("enum fields did not survive: %+v", got.Buffers[1])
	}
}

func TestLoadModuleRejectsMissingKernelName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := WriteModule(path, Module{Buffers: nil}); err != nil {
		t.Fatalf("WriteModule failed: %v", err)
	}
	if _, err := LoadModule(path); err == nil {
		t.Error("LoadModule should reject metadata without a kernel name")
	}
}

func TestTableLookup(t *testing.T) {
	tbl := Table{}
	tbl.Add(Module{KernelName: "copy"})

	if _, ok := tbl.Lookup("copy"); !ok {
		t.Error("Lookup(copy) should succeed")
	}
	if _, ok := tbl.Lookup("missing"); ok {
		t.Error("Lookup(missing) should fail")
	}
}
