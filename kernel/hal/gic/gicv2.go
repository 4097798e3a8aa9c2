package gic

import "github.com/byoboo/tiny-os-sub000/kernel/hal/mmio"

// GICv2 distributor and CPU interface register offsets (BCM2711/2712).
const (
	gicdCTLR    = 0x000
	gicdISENABL = 0x100 // +4*n, n = id/32
	gicdICENABL = 0x180
	gicdIPRIOR  = 0x400 // +id, byte-addressed priority
	gicdITARGET = 0x800 // +id, byte-addressed CPU target mask

	giccCTLR = 0x000
	giccPMR  = 0x004
	giccIAR  = 0x00c
	giccEOIR = 0x010
)

// V2 drives a GICv2 distributor + CPU interface pair.
type V2 struct {
	distBase uintptr
	cpuBase  uintptr
}

// NewV2 constructs a GICv2 controller over the given MMIO bases and enables
// both the distributor and this CPU's interface.
func NewV2(distBase, cpuBase uintptr) *V2 {
	g := &V2{distBase: distBase, cpuBase: cpuBase}
	mmio.Write32(g.distBase+gicdCTLR, 1)
	mmio.Write32(g.cpuBase+giccPMR, 0xff)
	mmio.Write32(g.cpuBase+giccCTLR, 1)
	return g
}

func (g *V2) Enable(id uint32) {
	mmio.Write32(g.distBase+gicdISENABL+4*(id/32), 1<<(id%32))
}

func (g *V2) Disable(id uint32) {
	mmio.Write32(g.distBase+gicdICENABL+4*(id/32), 1<<(id%32))
}

func (g *V2) SetPriority(id uint32, prio uint8) {
	addr := g.distBase + gicdIPRIOR + uintptr(id)
	cur := mmio.Read32(addr &^ 3)
	shift := (addr & 3) * 8
	cur = (cur &^ (0xff << shift)) | uint32(prio)<<shift
	mmio.Write32(addr&^3, cur)
}

func (g *V2) SetTarget(id uint32, cpuMask uint8) {
	addr := g.distBase + gicdITARGET + uintptr(id)
	cur := mmio.Read32(addr &^ 3)
	shift := (addr & 3) * 8
	cur = (cur &^ (0xff << shift)) | uint32(cpuMask)<<shift
	mmio.Write32(addr&^3, cur)
}

func (g *V2) Ack() (uint32, uint8) {
	iar := mmio.Read32(g.cpuBase + giccIAR)
	id := iar & 0x3ff
	addr := g.distBase + gicdIPRIOR + uintptr(id)
	runningPrio := uint8(mmio.Read32(addr&^3) >> ((addr & 3) * 8))
	return id, runningPrio
}

func (g *V2) EOI(id uint32) {
	mmio.Write32(g.cpuBase+giccEOIR, id)
}

func (g *V2) MaskBelow(prio uint8) {
	mmio.Write32(g.cpuBase+giccPMR, uint32(prio))
}

func (g *V2) Unmask() {
	mmio.Write32(g.cpuBase+giccPMR, 0xff)
}
