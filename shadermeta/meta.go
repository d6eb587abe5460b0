// Package shadermeta models the per-kernel buffer binding metadata that the
// offline shader preprocessor emits and the runtime consumes. The runtime
// never inspects SPIR-V for reflection data; everything it knows about a
// kernel's buffers comes from here.
package shadermeta

import (
	"encoding/json"
	"fmt"
	"os"
)

// Access is the kernel-side access mode of a bound buffer.
type Access uint8

const (
	ReadOnly Access = iota
	WriteOnly
	ReadWrite
)

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "read_only"
	case WriteOnly:
		return "write_only"
	case ReadWrite:
		return "read_write"
	default:
		return fmt.Sprintf("Access(%d)", uint8(a))
	}
}

// ParseAccess accepts the spellings the preprocessor accepts in shader
// annotations.
func ParseAccess(s string) (Access, error) {
	switch s {
	case "read_only", "readonly", "read-only":
		return ReadOnly, nil
	case "write_only", "writeonly", "write-only":
		return WriteOnly, nil
	case "read_write", "readwrite", "read-write":
		return ReadWrite, nil
	default:
		return 0, fmt.Errorf("unknown access mode %q", s)
	}
}

func (a Access) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Access) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseAccess(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Layout is the declared memory layout of a buffer block.
type Layout uint8

const (
	Std430 Layout = iota
	Std140
	Scalar
	UnknownLayout
)

func (l Layout) String() string {
	switch l {
	case Std430:
		return "std430"
	case Std140:
		return "std140"
	case Scalar:
		return "scalar"
	default:
		return "unknown"
	}
}

// ParseLayout maps an annotation layout tag to its enum value. Unrecognized
// tags are an error; callers that want leniency check SupportedLayout first.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "std430":
		return Std430, nil
	case "std140":
		return Std140, nil
	case "scalar":
		return Scalar, nil
	case "unknown":
		return UnknownLayout, nil
	default:
		return 0, fmt.Errorf("unknown layout %q", s)
	}
}

// SupportedLayout reports whether the tag is one the preprocessor can emit
// GLSL for.
func SupportedLayout(s string) bool {
	return s == "std430" || s == "std140" || s == "scalar"
}

func (l Layout) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Layout) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseLayout(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// BufferBinding describes one buffer slot of a kernel: which logical buffer
// name occupies which (set, binding) coordinate, and how the kernel touches
// it.
type BufferBinding struct {
	Name     string `json:"name"`
	TypeName string `json:"type"`
	Access   Access `json:"access"`
	Layout   Layout `json:"layout"`
	Set      uint32 `json:"set"`
	Binding  uint32 `json:"binding"`
}

// Module is the metadata for one kernel.
type Module struct {
	KernelName string          `json:"kernel"`
	Buffers    []BufferBinding `json:"buffers"`
}

// SetCount derives the number of descriptor sets the kernel spans:
// max(set)+1, or 0 for a kernel with no buffers. Set indices need not be
// dense; gaps become empty sets.
func (m Module) SetCount() uint32 {
	if len(m.Buffers) == 0 {
		return 0
	}
	var max uint32
	for _, b := range m.Buffers {
		if b.Set > max {
			max = b.Set
		}
	}
	return max + 1
}

// Table maps kernel names to their metadata. The runtime receives a Table
// explicitly; there is no ambient registry.
type Table map[string]Module

// Lookup returns the module for a kernel name.
func (t Table) Lookup(kernel string) (Module, bool) {
	m, ok := t[kernel]
	return m, ok
}

// Add inserts a module under its kernel name, replacing any previous entry.
func (t Table) Add(m Module) {
	t[m.KernelName] = m
}

// LoadModule reads a single-kernel metadata JSON file, as written by the
// preprocessor.
func LoadModule(path string) (Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Module{}, fmt.Errorf("reading metadata %s: %w", path, err)
	}
	var m Module
	if err := json.Unmarshal(data, &m); err != nil {
		return Module{}, fmt.Errorf("parsing metadata %s: %w", path, err)
	}
	if m.KernelName == "" {
		return Module{}, fmt.Errorf("metadata %s: missing kernel name", path)
	}
	return m, nil
}

// WriteModule writes a module as indented JSON.
func WriteModule(path string, m Module) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
