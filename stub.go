package main

import "github.com/byoboo/tiny-os-sub000/kernel/boot"

var dtbPtr uintptr

// main makes a dummy call to the actual kernel entrypoint function. It is
// intentionally defined to prevent the Go compiler from optimizing away the
// real kernel code.
//
// A global variable is passed as an argument to Entry to prevent the
// compiler from inlining the actual call and removing Entry from the
// generated .o file. The assembly boot stub places the device-tree-blob
// pointer it receives in x0 into this variable before calling main.
func main() {
	boot.Entry(dtbPtr)
}
