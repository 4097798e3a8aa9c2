package vmm

// FillPolicy names how a LazyRegion's pages are materialized on first
// fault.
type FillPolicy uint8

const (
	// ZeroOnRead maps the shared read-only zero frame on a read fault;
	// a subsequent write upgrades through the ordinary CoW path.
	ZeroOnRead FillPolicy = iota
	// ZeroOnWrite allocates and zeroes a private frame immediately, even
	// on a read fault, skipping the zero-page-sharing optimisation.
	ZeroOnWrite
	// FileBacked materializes a page by invoking Source.ReadPage; this
	// core treats the source as an opaque collaborator (filesystem
	// paging is explicitly out of scope) and only wires the call site.
	FileBacked
)

// PageSource supplies page contents for a FileBacked LazyRegion.
type PageSource interface {
	ReadPage(offset uintptr, dst uintptr) error
}

// LazyRegion describes a virtual range an AddressSpace has declared as
// lazily materialized: no frame is backing any page in [Start, End) until
// the first fault touches it.
type LazyRegion struct {
	Start, End uintptr
	Policy     FillPolicy
	Source     PageSource
	Flags      PageTableEntryFlag
}

func (r *LazyRegion) contains(addr uintptr) bool {
	return addr >= r.Start && addr < r.End
}

// lazyFault implements §4.4 branch 2: materialize one page for a
// translation fault inside a declared lazy region.
func lazyFault(space *AddressSpace, region *LazyRegion, page Page, isWrite bool, allocFn FrameAllocatorFn) error {
	switch region.Policy {
	case ZeroOnRead:
		if !isWrite {
			if err := Map(space, page, ReservedZeroedFrame, region.Flags&^FlagRW|FlagCopyOnWrite, allocFn); err != nil {
				return err
			}
			cowShare(ReservedZeroedFrame)
			return nil
		}
		return materializeZeroed(space, page, region.Flags, allocFn)

	case ZeroOnWrite:
		return materializeZeroed(space, page, region.Flags, allocFn)

	case FileBacked:
		frame, err := allocFn()
		if err != nil {
			return err
		}
		tmp, err := MapTemporary(frame, allocFn)
		if err != nil {
			return err
		}
		err = region.Source.ReadPage(page.Address()-region.Start, tmp.Address())
		_ = Unmap(KernelSpace, tmp)
		if err != nil {
			return err
		}
		return Map(space, page, frame, region.Flags, allocFn)
	}

	return errInvalidFillPolicy
}

func materializeZeroed(space *AddressSpace, page Page, flags PageTableEntryFlag, allocFn FrameAllocatorFn) error {
	frame, err := allocFn()
	if err != nil {
		return err
	}
	tmp, err := MapTemporary(frame, allocFn)
	if err != nil {
		return err
	}
	zeroFrame(tmp.Address())
	_ = Unmap(KernelSpace, tmp)

	return Map(space, page, frame, flags, allocFn)
}
