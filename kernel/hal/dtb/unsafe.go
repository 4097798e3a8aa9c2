package dtb

import (
	"reflect"
	"unsafe"
)

// unsafeBytes overlays a []byte of the given length on top of addr without
// copying, the same SliceHeader-construction idiom kernel/mem uses for
// Memset/Memcopy.
func unsafeBytes(addr uintptr, length int) []byte {
	return *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Data: addr,
		Len:  length,
		Cap:  length,
	}))
}
