package pmm

import (
	"github.com/byoboo/tiny-os-sub000/kernel/errors"
	"github.com/byoboo/tiny-os-sub000/kernel/mem"
	"github.com/byoboo/tiny-os-sub000/kernel/sync"
)

// maxFrames bounds the compile-time bitmap storage, matching the largest
// physical memory window the memory map contract promises across the
// Pi 3/4/5 targets (1GiB).
const maxFrames = uint32(1 * mem.Gb / mem.PageSize)
const bitmapWords = (maxFrames + 63) / 64

var bitmapStorage [bitmapWords]uint64

// Allocator is a single-pool bitmap allocator over a fixed
// [heapStart, heapEnd) physical window, tracking one bit per mem.PageSize
// frame. It is grounded on the teacher's BitmapAllocator, simplified from
// multiple multiboot-derived pools down to the single fixed window this
// core's memory map contract defines, and generalized to the block
// allocator's first-fit-with-cursor search (kernel/mem/block) so the two
// allocators share the same scanning idiom at different granularities.
type Allocator struct {
	lock sync.Spinlock

	startFrame  Frame
	totalFrames uint32
	usedFrames  uint32
	cursor      uint32

	bitmap []uint64
}

// Init prepares the allocator to hand out frames drawn from
// [heapStart, heapEnd). Both bounds must be mem.PageSize aligned.
func (a *Allocator) Init(heapStart, heapEnd uintptr) error {
	if heapStart%uintptr(mem.PageSize) != 0 || heapEnd%uintptr(mem.PageSize) != 0 || heapEnd <= heapStart {
		return errors.ErrInvalidArgument
	}

	frames := uint32((heapEnd - heapStart) / uintptr(mem.PageSize))
	if frames > maxFrames {
		return errors.KernelError("physical memory window exceeds compile-time frame bitmap capacity")
	}

	a.startFrame = FrameFromAddress(heapStart)
	a.totalFrames = frames
	a.usedFrames = 0
	a.cursor = 0
	words := (frames + 63) / 64
	a.bitmap = bitmapStorage[:words]
	for i := range a.bitmap {
		a.bitmap[i] = 0
	}
	return nil
}

func (a *Allocator) relIndex(f Frame) (uint32, bool) {
	if f < a.startFrame {
		return 0, false
	}
	idx := uint32(f - a.startFrame)
	if idx >= a.totalFrames {
		return 0, false
	}
	return idx, true
}

func (a *Allocator) frameFree(idx uint32) bool {
	return a.bitmap[idx/64]&(1<<(idx%64)) == 0
}

func (a *Allocator) setFrame(idx uint32, used bool) {
	if used {
		a.bitmap[idx/64] |= 1 << (idx % 64)
	} else {
		a.bitmap[idx/64] &^= 1 << (idx % 64)
	}
}

// AllocFrame reserves and returns one free frame, or InvalidFrame if the
// pool is exhausted. Never blocks; callers observe exhaustion as
// ErrOutOfMemory and feed it into the memory pressure response.
func (a *Allocator) AllocFrame() (Frame, error) {
	a.lock.Acquire()
	defer a.lock.Release()

	if a.usedFrames >= a.totalFrames {
		return InvalidFrame, errors.ErrOutOfMemory
	}

	for i := uint32(0); i < a.totalFrames; i++ {
		idx := (a.cursor + i) % a.totalFrames
		if a.frameFree(idx) {
			a.setFrame(idx, true)
			a.usedFrames++
			a.cursor = (idx + 1) % a.totalFrames
			return a.startFrame + Frame(idx), nil
		}
	}

	return InvalidFrame, errors.ErrOutOfMemory
}

// FreeFrame releases a frame previously returned by AllocFrame. Freeing a
// frame that is not currently allocated, or one outside the managed window,
// returns ErrDoubleFree / ErrOutOfRange respectively.
func (a *Allocator) FreeFrame(f Frame) error {
	a.lock.Acquire()
	defer a.lock.Release()

	idx, ok := a.relIndex(f)
	if !ok {
		return errors.ErrOutOfRange
	}
	if a.frameFree(idx) {
		return errors.ErrDoubleFree
	}

	a.setFrame(idx, false)
	a.usedFrames--
	mem.Memset(f.Address(), 0, mem.PageSize)
	return nil
}

// FreeFrames returns the number of frames still available.
func (a *Allocator) FreeFrames() uint32 {
	a.lock.Acquire()
	defer a.lock.Release()
	return a.totalFrames - a.usedFrames
}
