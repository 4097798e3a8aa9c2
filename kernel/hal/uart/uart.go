// Package uart drives the PL011 UART found on all BCM2835/2711/2712 SoCs
// (mapped at a SoC-specific MMIO base — 0x3F201000 on the Pi 3,
// 0xFE201000 on the Pi 4, discovered from the device tree in general). It
// implements the console_putc/console_getc collaborator interface §6
// requires, and backs kfmt's early, allocation-free diagnostics the same
// way the teacher's EGA console backs kernel/kfmt/early — except here the
// medium is a serial line, not a text-mode framebuffer.
package uart

import "github.com/byoboo/tiny-os-sub000/kernel/hal/mmio"

// Register offsets, relative to the UART's MMIO base.
const (
	regDR   = 0x00 // data register
	regFR   = 0x18 // flag register
	regIBRD = 0x24 // integer baud rate divisor
	regFBRD = 0x28 // fractional baud rate divisor
	regLCRH = 0x2c // line control
	regCR   = 0x30 // control register
	regICR  = 0x44 // interrupt clear register
)

const (
	frTXFF = 1 << 5 // transmit FIFO full
	frRXFE = 1 << 4 // receive FIFO empty

	crUARTEN = 1 << 0
	crTXE    = 1 << 8
	crRXE    = 1 << 9

	lcrhFEN  = 1 << 4 // enable FIFOs
	lcrhWLEN = 3 << 5 // 8 data bits
)

// Device drives a single PL011 instance. Per the teacher's comment on
// kernel/driver/tty.Vt, Go interfaces are avoided here in favor of a
// concrete type: this code runs before the kernel's own allocator exists,
// and interface values big enough to carry a method set still need the
// compiler to believe escape analysis is safe, which it is not this early.
type Device struct {
	base uintptr
}

// Init programs the UART for 8N1 at a fixed baud rate appropriate for the
// default 48MHz UART clock and enables the TX/RX FIFOs.
func (d *Device) Init(base uintptr) {
	d.base = base

	mmio.Write32(d.base+regCR, 0)
	mmio.Write32(d.base+regICR, 0x7ff)
	mmio.Write32(d.base+regIBRD, 26)
	mmio.Write32(d.base+regFBRD, 3)
	mmio.Write32(d.base+regLCRH, lcrhFEN|lcrhWLEN)
	mmio.Write32(d.base+regCR, crUARTEN|crTXE|crRXE)
}

// WriteByte blocks until the transmit FIFO has room, then sends b.
// Implements the console_putc(u8) collaborator interface.
func (d *Device) WriteByte(b byte) {
	for mmio.Read32(d.base+regFR)&frTXFF != 0 {
	}
	mmio.Write32(d.base+regDR, uint32(b))
}

// Write implements io.Writer by sending every byte of p through WriteByte.
func (d *Device) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			d.WriteByte('\r')
		}
		d.WriteByte(b)
	}
	return len(p), nil
}

// ReadByte returns the next received byte and true, or false if the receive
// FIFO is currently empty. Implements the console_getc() -> Option<u8>
// collaborator interface.
func (d *Device) ReadByte() (byte, bool) {
	if mmio.Read32(d.base+regFR)&frRXFE != 0 {
		return 0, false
	}
	return byte(mmio.Read32(d.base + regDR)), true
}
