//go:build unix

package rpc

import "golang.org/x/sys/unix"

// alive reports whether process pid exists.
func alive(pid uint32) bool {
	err := unix.Kill(int(pid), 0)
	return err == nil || err == unix.EPERM
}
