package vmm

import "github.com/byoboo/tiny-os-sub000/kernel/errors"

// Translate returns the physical address that corresponds to virtAddr within
// space, or ErrMappingConflict if no mapping covers it.
func Translate(space *AddressSpace, virtAddr uintptr) (uintptr, error) {
	pte := pteForAddress(space.rootFrame, virtAddr)
	if pte == nil || !pte.HasFlags(FlagPresent) {
		return 0, errors.ErrMappingConflict
	}

	pageOffset := virtAddr & (uintptr(1)<<pageLevelShifts[pageLevels-1] - 1)
	return pte.Frame().Address() + pageOffset, nil
}
