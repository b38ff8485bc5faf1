// Package mmap maps local container files read-only into memory.
//
//	m, err := mmap.Open("archive.pst")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessRandom)
//	n, err := m.ReadAt(buf, off)
//
// Unix uses mmap(2) and madvise(2); Windows uses CreateFileMapping and
// MapViewOfFile, where access hints are ignored.
//
// ReadAt and Close are safe to call concurrently: Close waits for in-flight
// reads before unmapping. Slices returned by Bytes must not outlive Close.
package mmap
