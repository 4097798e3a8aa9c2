package deferred

import (
	"github.com/byoboo/tiny-os-sub000/kernel/kfmt"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/pressure"
)

// CompactFn runs the deferred compaction pass §4.2/§4.7 schedule on a
// worsening pressure crossing: shrink eager caches, unmap cold lazy pages,
// coalesce free runs. Overridable by tests and by whichever subsystem ends
// up owning "eager cache" and "cold lazy page" policy; the default just
// reports the crossing, since the core's own caches (the block allocator,
// the lazy-region table) have no eviction policy of their own yet.
var CompactFn = func(level pressure.Level) {
	kfmt.Printf("deferred: compaction pass for pressure level %d\n", uint8(level))
}

func init() {
	pressure.CompactFn = submitCompaction
}

// submitCompaction is registered as pressure.CompactFn: rather than run
// the compaction pass inline from whatever call site (an allocator Free,
// typically) observed the worsening crossing, it schedules exactly one
// NORMAL-tier WorkItem per crossing, per Property 12. A full queue here
// means compaction for this crossing is dropped — the next worsening
// crossing gets another chance, and None->Low->High->Critical crossings
// happening faster than the drainer runs is itself a signal things are
// already bad enough that dropping one compaction pass is the lesser harm.
func submitCompaction(level pressure.Level) {
	_ = Submit(Normal, WorkItem{
		Fn:  func(arg uintptr) { CompactFn(pressure.Level(arg)) },
		Arg: uintptr(level),
	})
}
