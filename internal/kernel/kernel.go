/*
   kernel backs the user-space Linux-syscall-proxy mode: a host file
   descriptor table that lets guest open/read/write/close/lseek/fstat
   syscalls pass through to real host files, numbered starting at 3 so 0-2
   stay aliased to the host's stdin/stdout/stderr.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package kernel

import (
	"fmt"
	"os"
)

// Handle is anything a guest file descriptor can resolve to. The host
// *os.File is the only implementation today, but guest-visible syscalls
// are written against this interface so a future sandboxed or in-memory
// filesystem can be substituted without touching the CPU's syscall shim.
type Handle interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
	Stat() (os.FileInfo, error)
}

// Table maps guest file descriptors to host Handles.
type Table struct {
	handles map[int]Handle
	next    int
}

// New returns a fd table with 0/1/2 preseeded to the host's standard
// streams.
func New() *Table {
	t := &Table{handles: make(map[int]Handle), next: 3}
	t.handles[0] = os.Stdin
	t.handles[1] = os.Stdout
	t.handles[2] = os.Stderr
	return t
}

// Open opens path on the host and returns the new guest fd.
func (t *Table) Open(path string, flag int, perm os.FileMode) (int, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return -1, err
	}
	fd := t.next
	t.next++
	t.handles[fd] = f
	return fd, nil
}

// Get resolves a guest fd to its Handle.
func (t *Table) Get(fd int) (Handle, error) {
	h, ok := t.handles[fd]
	if !ok {
		return nil, fmt.Errorf("kernel: fd %d not open", fd)
	}
	return h, nil
}

// Close releases a guest fd and closes the underlying host handle. The
// preseeded standard streams (0-2) are neither closed nor removed.
func (t *Table) Close(fd int) error {
	h, ok := t.handles[fd]
	if !ok {
		return fmt.Errorf("kernel: fd %d not open", fd)
	}
	if fd > 2 {
		delete(t.handles, fd)
		return h.Close()
	}
	return nil
}

// ShutdownAll closes every fd above 2, called on CPU teardown.
func (t *Table) ShutdownAll() {
	for fd, h := range t.handles {
		if fd > 2 {
			h.Close()
			delete(t.handles, fd)
		}
	}
}
