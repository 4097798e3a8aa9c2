// Package dtb retains the device-tree-blob pointer the bootloader passes in
// x0, without parsing it — parsing is peripheral matter out of this
// specification's scope. This plays the same role the teacher's
// hal/multiboot package plays for the x86 multiboot info structure: a
// pointer is stashed early and made available to whichever peripheral
// subsystem needs to read it later.
package dtb

var infoPtr uintptr

// SetInfoPtr records the DTB pointer passed to boot_entry in x0. Called
// once, before any other subsystem initializes.
func SetInfoPtr(ptr uintptr) {
	infoPtr = ptr
}

// InfoPtr returns the retained DTB pointer.
func InfoPtr() uintptr {
	return infoPtr
}

// Bytes returns a read-only view of length bytes of the DTB starting at its
// base. The caller is responsible for knowing a valid length (e.g. from the
// blob's own totalsize field) — this accessor only provides the
// byte-range view; struct-block/string-block parsing belongs to the
// peripheral FDT reader this core does not specify.
func Bytes(length int) []byte {
	if infoPtr == 0 || length <= 0 {
		return nil
	}
	return unsafeBytes(infoPtr, length)
}
