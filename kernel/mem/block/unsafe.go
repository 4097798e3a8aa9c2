package block

import "unsafe"

// ptrOf converts a raw address into an unsafe.Pointer for canary
// reads/writes, the same conversion kernel/mem performs when overlaying a
// slice on top of a bare address.
func ptrOf(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}
