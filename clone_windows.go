//go:build windows

package syncfile

import (
	"os"

	"golang.org/x/sys/windows"
)

func dupFile(f *os.File) (*os.File, error) {
	conn, err := f.SyscallConn()
	if err != nil {
		return nil, err
	}

	var (
		dup  windows.Handle
		derr error
	)
	if err := conn.Control(func(fd uintptr) {
		proc := windows.CurrentProcess()
		derr = windows.DuplicateHandle(proc, windows.Handle(fd), proc, &dup, 0, false, windows.DUPLICATE_SAME_ACCESS)
	}); err != nil {
		return nil, err
	}
	if derr != nil {
		return nil, os.NewSyscallError("DuplicateHandle", derr)
	}
	return os.NewFile(uintptr(dup), f.Name()), nil
}
