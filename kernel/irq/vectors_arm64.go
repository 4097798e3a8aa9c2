package irq

// installVectors programs VBAR_EL1 with the address of the 16-slot vector
// table assembled in vectors_arm64.s (2KiB aligned, 128 bytes per slot:
// current-EL SP0, current-EL SPx, lower-EL AArch64, lower-EL AArch32, each
// with Sync/IRQ/FIQ/SError). Declared without a body; implemented in
// assembly, the same split the teacher uses for installIDT.
func installVectors()

// InstallVectors is the package's public entry point, called once from
// boot_entry after the primary core has a stack.
func InstallVectors() {
	installVectors()
}
