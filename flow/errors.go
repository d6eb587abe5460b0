package flow

import (
	"errors"
	"fmt"
)

// Kind classifies a runtime failure. Every error returned by an Instance
// operation carries exactly one Kind.
type Kind int

const (
	// KindConfiguration covers caller misuse that never reaches the
	// device: empty buffer names, zero workgroup counts, operations on a
	// closed instance.
	KindConfiguration Kind = iota
	// KindAccessMismatch: a buffer name was redeclared with a different
	// access mode.
	KindAccessMismatch
	// KindAllocationFailed: the device allocator rejected a request.
	KindAllocationFailed
	// KindUnallocated: the buffer exists but has no backing memory yet.
	KindUnallocated
	// KindSizeExceeded: a read or write past the buffer's current size.
	KindSizeExceeded
	// KindKernelExists: a kernel name was added twice.
	KindKernelExists
	// KindMetadataNotFound: no binding metadata for the kernel name.
	KindMetadataNotFound
	// KindDuplicateBinding: two bindings share a (set, binding) slot.
	KindDuplicateBinding
	// KindInvalidBinary: kernel binary is empty or not word aligned.
	KindInvalidBinary
	// KindPipelineBuild: the driver rejected a layout or pipeline build.
	KindPipelineBuild
	// KindUnknownKernel: dispatch of a name that was never added.
	KindUnknownKernel
	// KindLayoutMismatch: the kernel's stored set count no longer matches
	// its metadata.
	KindLayoutMismatch
	// KindMissingBuffer: a kernel's metadata names a buffer that was
	// never declared.
	KindMissingBuffer
	// KindSubmission: command recording or queue submission failed.
	KindSubmission
)

var kindNames = map[Kind]string{
	KindConfiguration:    "configuration",
	KindAccessMismatch:   "access mismatch",
	KindAllocationFailed: "allocation failed",
	KindUnallocated:      "unallocated",
	KindSizeExceeded:     "size exceeded",
	KindKernelExists:     "kernel already exists",
	KindMetadataNotFound: "metadata not found",
	KindDuplicateBinding: "duplicate binding",
	KindInvalidBinary:    "invalid binary",
	KindPipelineBuild:    "pipeline build failed",
	KindUnknownKernel:    "unknown kernel",
	KindLayoutMismatch:   "layout mismatch",
	KindMissingBuffer:    "missing buffer",
	KindSubmission:       "submission failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the failure type returned by all Instance operations. Op names
// the operation that detected the failure, Msg carries the specifics, and
// Err holds any underlying device error.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind from an error chain. The second result is false
// when the chain contains no *Error.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

func errf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, op string, err error, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}
