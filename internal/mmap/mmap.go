// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap provides memory-mapped access to files.
package mmap // import "github.com/go-lpc/npix/internal/mmap"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

var (
	errClosed   = errors.New("mmap: closed")
	errReadOnly = errors.New("mmap: read-only mapping")
)

// Handle is a memory-mapped region.
type Handle struct {
	data []byte
	rw   bool
}

// Open maps the whole content of the named file, read-only.
// Only the pages that are touched get loaded by the OS.
func Open(fname string) (*Handle, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not open %q: %w", fname, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("mmap: could not stat %q: %w", fname, err)
	}

	h, err := mapFile(f, fi.Size(), unix.PROT_READ)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not map %q: %w", fname, err)
	}
	return h, nil
}

// OpenFile maps the first size bytes of f, for reading and writing.
// f must have been opened with read-write access and be at least size bytes long.
func OpenFile(f *os.File, size int64) (*Handle, error) {
	h, err := mapFile(f, size, unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not map %q: %w", f.Name(), err)
	}
	return h, nil
}

func mapFile(f *os.File, size int64, prot int) (*Handle, error) {
	if size < 0 || int64(int(size)) != size {
		return nil, fmt.Errorf("mmap: invalid size %d", size)
	}

	rw := prot&unix.PROT_WRITE != 0
	if size == 0 {
		// zero-length mappings are rejected by the kernel.
		h := &Handle{data: []byte{}, rw: rw}
		return h, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	if len(data) != int(size) {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("mmap: invalid mmap'd data: %d", len(data))
	}

	h := &Handle{data: data, rw: rw}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h, nil
}

// Close closes the mmap handle.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	data := h.data
	h.data = nil
	runtime.SetFinalizer(h, nil)

	if len(data) == 0 {
		return nil
	}
	return unix.Munmap(data)
}

// Len returns the length of the underlying memory-mapped file.
func (h *Handle) Len() int {
	return len(h.data)
}

// At returns the byte at index i.
func (h *Handle) At(i int) byte {
	return h.data[i]
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements the io.WriterAt interface.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if !h.rw {
		return 0, errReadOnly
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid WriteAt offset %d", off)
	}
	n := copy(h.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Sync flushes the changes made to a writable mapping back to the file.
func (h *Handle) Sync() error {
	if h == nil {
		return os.ErrInvalid
	}
	if h.data == nil {
		return errClosed
	}
	if !h.rw || len(h.data) == 0 {
		return nil
	}
	return unix.Msync(h.data, unix.MS_SYNC)
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)
