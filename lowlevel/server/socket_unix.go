//go:build linux || darwin

// File: server/socket_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "syscall"

func readFD(fd uintptr, buf []byte) (int, error) {
	return syscall.Read(int(fd), buf)
}

func writeFD(fd uintptr, buf []byte) (int, error) {
	return syscall.Write(int(fd), buf)
}

func closeFD(fd uintptr) error {
	return syscall.Close(int(fd))
}
