package irq

import "github.com/byoboo/tiny-os-sub000/kernel/hal/gic"

// ackPendingIRQ and haltLoop are called from vectors_arm64.s; declaring
// them here (rather than in assembly) keeps the GIC acknowledge sequence
// and the double-fault halt in Go, where gic.Active's interface dispatch
// and the DAIF-masked spin are straightforward, leaving the assembly
// responsible only for context save/restore and ERET.

var lastAckedID uint32

func ackPendingIRQ() {
	if gic.Active == nil {
		return
	}
	id, _ := gic.Active.Ack()
	lastAckedID = id
}

func haltLoop() {
	for {
		halt()
	}
}
