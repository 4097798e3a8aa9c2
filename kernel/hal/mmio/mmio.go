// Package mmio provides the register read/write helpers every peripheral
// driver in hal/ builds on. Writes are ordered with an explicit barrier so
// that, per the concurrency model, a store to a device register is
// guaranteed to have taken effect before the caller assumes so. The style
// (a tiny Read/Write pair wrapping a volatile pointer dereference) follows
// the register-access idiom used by bare-metal Go ARM code such as
// usbarmory/tamago's arm64 package, generalized here from 32-bit to 64-bit
// register width.
package mmio

import (
	"unsafe"

	"github.com/byoboo/tiny-os-sub000/kernel/cpu"
)

// Read32 returns the 32-bit value at the given device MMIO address.
func Read32(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr))
}

// Write32 stores a 32-bit value at the given device MMIO address and issues
// a DSB so the write is guaranteed visible before the function returns,
// satisfying the ordering rule for Device-nGnRnE peripherals.
func Write32(addr uintptr, value uint32) {
	*(*uint32)(unsafe.Pointer(addr)) = value
	cpu.DSB()
}

// Read64 returns the 64-bit value at the given device MMIO address.
func Read64(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr))
}

// Write64 stores a 64-bit value at the given device MMIO address, followed
// by a DSB.
func Write64(addr uintptr, value uint64) {
	*(*uint64)(unsafe.Pointer(addr)) = value
	cpu.DSB()
}

// SetBits32 performs a read-modify-write that sets the given mask's bits.
func SetBits32(addr uintptr, mask uint32) {
	Write32(addr, Read32(addr)|mask)
}

// ClearBits32 performs a read-modify-write that clears the given mask's bits.
func ClearBits32(addr uintptr, mask uint32) {
	Write32(addr, Read32(addr)&^mask)
}
