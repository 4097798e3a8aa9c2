// Package hal gathers the platform collaborators the kernel core treats as
// external per §6: the serial console, the system timer and the interrupt
// controller.
package hal

import "github.com/byoboo/tiny-os-sub000/kernel/hal/uart"

// Console is the console_putc/console_getc collaborator interface §6
// requires. ActiveConsole is declared at this interface type, rather than
// the teacher's concrete *tty.Vt style, so panic and early-diagnostic tests
// can substitute a fake sink instead of driving real UART MMIO.
type Console interface {
	WriteByte(b byte)
	Write(p []byte) (int, error)
}

// defaultConsole is the real PL011 driver InitConsole programs. ActiveConsole
// starts pointed at it and is only ever redirected by tests.
var defaultConsole = &uart.Device{}

// ActiveConsole is the serial console used for early diagnostics and panics.
var ActiveConsole Console = defaultConsole

// InitConsole brings up the serial console at the given MMIO base address.
// Must be the first HAL call during boot so that kfmt/early output reaches
// the UART. It does not attach the console to kfmt: kfmt.Printf output
// stays in kfmt's ring buffer until kfmt.SetOutputSink is called.
func InitConsole(base uintptr) {
	defaultConsole.Init(base)
}
