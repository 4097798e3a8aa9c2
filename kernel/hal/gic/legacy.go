package gic

import "github.com/byoboo/tiny-os-sub000/kernel/hal/mmio"

// Legacy drives the BCM2835 "ARM interrupt controller", a far simpler
// device than GICv2: a flat enable/pending bitmask with no hardware
// priority or per-interrupt target support. Priority is satisfied in
// software — SetPriority only updates the bookkeeping Ack consults — and
// SetTarget is a no-op, since the hardware has a single target. This is
// the Pi 3 backend.
type Legacy struct {
	base uintptr

	// software-tracked priority, since the BCM2835 controller has no
	// equivalent hardware field.
	priority [64]uint8
}

const (
	legacyIRQPendingBasic = 0x200
	legacyIRQEnable1      = 0x210
	legacyIRQEnable2      = 0x214
	legacyIRQDisable1     = 0x21c
	legacyIRQDisable2     = 0x220
)

// NewLegacy constructs a BCM2835 legacy interrupt controller driver.
func NewLegacy(base uintptr) *Legacy {
	return &Legacy{base: base}
}

func (l *Legacy) regFor(id uint32) (enable, disable uintptr, bit uint32) {
	if id < 32 {
		return l.base + legacyIRQEnable1, l.base + legacyIRQDisable1, id
	}
	return l.base + legacyIRQEnable2, l.base + legacyIRQDisable2, id - 32
}

func (l *Legacy) Enable(id uint32) {
	enable, _, bit := l.regFor(id)
	mmio.Write32(enable, 1<<bit)
}

func (l *Legacy) Disable(id uint32) {
	_, disable, bit := l.regFor(id)
	mmio.Write32(disable, 1<<bit)
}

// SetPriority records priority in software; the dispatcher uses it to order
// delivery when more than one source is pending simultaneously.
func (l *Legacy) SetPriority(id uint32, prio uint8) {
	if int(id) < len(l.priority) {
		l.priority[id] = prio
	}
}

// SetTarget is a no-op: the BCM2835 legacy controller has a single target,
// the requesting CPU.
func (l *Legacy) SetTarget(uint32, uint8) {}

// Ack scans the pending-basic register and returns the lowest-numbered,
// highest-software-priority pending source. There is no hardware
// acknowledge step on this controller; the handler itself must clear the
// device-level pending condition.
func (l *Legacy) Ack() (uint32, uint8) {
	pending := mmio.Read32(l.base + legacyIRQPendingBasic)
	if pending == 0 {
		return 0, 0
	}

	best, bestPrio := uint32(0), uint8(0)
	found := false
	for bit := uint32(0); bit < 32; bit++ {
		if pending&(1<<bit) == 0 {
			continue
		}
		if !found || l.priority[bit] > bestPrio {
			best, bestPrio, found = bit, l.priority[bit], true
		}
	}
	return best, bestPrio
}

// EOI is a no-op: the legacy controller has no end-of-interrupt register;
// clearing the pending condition is the responsibility of the device driver
// that raised it.
func (l *Legacy) EOI(uint32) {}

// MaskBelow is approximated by disabling every tracked source whose
// software priority is not strictly greater than prio, and re-enabling them
// on Unmask. This is coarser than GICv2's hardware priority mask but
// preserves the nesting contract dispatch code relies on.
func (l *Legacy) MaskBelow(prio uint8) {
	for id, p := range l.priority {
		if p <= prio {
			l.Disable(uint32(id))
		}
	}
}

func (l *Legacy) Unmask() {
	for id := range l.priority {
		l.Enable(uint32(id))
	}
}
