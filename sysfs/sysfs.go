// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// Package sysfs provides raw access to the text attribute files exposed by
// sysfs.
//
// Each call opens, uses and closes its own file descriptor, so no state is
// held between calls.
package sysfs

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// DefaultCapacity is the read buffer size, including the terminator, used for
// GPIO attributes.
const DefaultCapacity = 16

// WriteText writes the full text to the attribute file at path.
//
// The file is created if it doesn't exist, though for sysfs attributes that
// is never the case. The write is synced before returning.
func WriteText(path, text string) error {
	fd, err := openFile(path, unix.O_WRONLY|unix.O_CREAT|unix.O_CLOEXEC, 0644)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	// neither is supported by sysfs attributes, but regular files need them.
	unix.Ftruncate(fd, 0)
	unix.Seek(fd, 0, io.SeekStart)
	if err = writeAll(fd, []byte(text)); err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	if err = fsync(fd); err != nil {
		return &Error{Op: "sync", Path: path, Err: err}
	}
	return nil
}

// WriteControl writes the full text to an existing control file, such as the
// GPIO export file.
//
// Unlike WriteText the file is never created, so a missing control file is
// reported as an open error.
func WriteControl(path, text string) error {
	fd, err := openFile(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	if err = writeAll(fd, []byte(text)); err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	return nil
}

// IsOpenError returns true if err is an Error from opening the file, rather
// than from accessing it once open.
func IsOpenError(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Op == "open"
}

// ReadText reads the attribute file at path.
//
// At most capacity-1 bytes are returned, mirroring a null terminated buffer
// of the given capacity.
func ReadText(path string, capacity int) (string, error) {
	fd, err := openFile(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return "", err
	}
	defer unix.Close(fd)
	// attributes keep their offset, so rewind in case this fd is reused.
	unix.Seek(fd, 0, io.SeekStart)
	if capacity <= 1 {
		return "", nil
	}
	buf := make([]byte, capacity-1)
	var n int
	for {
		n, err = unix.Read(fd, buf)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return "", &Error{Op: "read", Path: path, Err: err}
	}
	return string(buf[:n]), nil
}

// Exists returns true if the path currently exists.
func Exists(path string) bool {
	return unix.Access(path, unix.F_OK) == nil
}

func openFile(path string, mode int, perm uint32) (int, error) {
	for {
		fd, err := unix.Open(path, mode, perm)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, &Error{Op: "open", Path: path, Err: err}
		}
		return fd, nil
	}
}

func writeAll(fd int, b []byte) error {
	for len(b) > 0 {
		n, err := unix.Write(fd, b)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n <= 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}

func fsync(fd int) error {
	err := unix.Fsync(fd)
	switch err {
	case unix.EINVAL, unix.ENOTSUP, unix.EROFS:
		// file doesn't support syncing
		return nil
	}
	return err
}

// Error records a failed operation on an attribute file.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error, typically a unix.Errno.
func (e *Error) Unwrap() error {
	return e.Err
}
