// Package errors defines the allocation-free error vocabulary shared by the
// kernel core. Every recoverable failure kind named by the error handling
// design is a KernelError constant here; fatal kinds never reach this
// package because they terminate through kernel.Panic instead.
package errors

// KernelError is a trivial implementation of a kernel error message that
// doesn't require a memory allocation. It is used as an alternative to
// errors.New, which is unavailable before the Go allocator is bootstrapped.
type KernelError string

// Error implements the error interface.
func (err KernelError) Error() string {
	return string(err)
}

// Recoverable error kinds. Each is returned as a typed result to the caller;
// none of them panics.
const (
	ErrInvalidParamValue = KernelError("invalid parameter value")

	// ErrInvalidArgument flags a caller precondition violation such as a
	// misaligned virtual address or a zero-sized request.
	ErrInvalidArgument = KernelError("invalid argument")

	// ErrOutOfMemory is returned when the physical allocator cannot serve
	// a request. Never blocks; triggers the pressure response.
	ErrOutOfMemory = KernelError("out of memory")

	// ErrMappingConflict is returned when a mapping request would
	// overlap an existing, incompatible mapping.
	ErrMappingConflict = KernelError("mapping conflict")

	// ErrCorruption flags a canary or bitmap mismatch detected by the
	// physical allocator. Logged; the caller decides how to escalate.
	ErrCorruption = KernelError("allocator corruption detected")

	// ErrInvalidFree names a free whose surrounding canary bytes do not
	// match. The block allocator reports canary mismatches as
	// ErrCorruption and does not return this value.
	ErrInvalidFree = KernelError("invalid free: canary mismatch")

	// ErrDoubleFree is returned when freeing an address whose bitmap
	// bits are already clear.
	ErrDoubleFree = KernelError("double free")

	// ErrOutOfRange is returned when an address lies outside the heap
	// window managed by the allocator.
	ErrOutOfRange = KernelError("address outside heap range")

	// ErrOutOfTables is returned when intermediate page-table allocation
	// fails while mapping a region.
	ErrOutOfTables = KernelError("out of page table frames")

	// ErrNoHugePageSupport is returned when a walk encounters a block
	// (huge-page) leaf where a table was expected.
	ErrNoHugePageSupport = KernelError("huge pages are not supported at this level")

	// ErrTimeout surfaces a wait primitive's expired deadline. Not an
	// error for the core itself.
	ErrTimeout = KernelError("operation timed out")

	// ErrCancelled surfaces that the owning process is being killed.
	ErrCancelled = KernelError("operation cancelled")

	// ErrFull is returned by a deferred-work queue that has reached its
	// bounded capacity.
	ErrFull = KernelError("queue is full")

	// ErrStackOverflow is returned when a stack growth fault falls outside
	// a StackRegion's growth window or past its configured maximum size.
	ErrStackOverflow = KernelError("stack overflow")
)
