//go:build !linux

package numa

import "runtime"

func Pin(cpu int) error {
	runtime.LockOSThread()
	return nil
}

func Unpin() {
	runtime.UnlockOSThread()
}
