package fs

import (
	"io"
	"os"
)

// Permissions of namespace directories and the backing files in them.
// Only the creating user may map them.
const (
	DirPerm     os.FileMode = 0o700
	BackingPerm os.FileMode = 0o600
)

// File is an open backing file. Fd is passed to mmap.
type File interface {
	io.ReadWriteCloser
	io.ReaderAt
	io.WriterAt
	Sync() error
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
	Fd() uintptr
	Name() string
}

// FileSystem is the set of operations registries, command blocks and local
// snapshot stores perform on disk.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Stat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.DirEntry, error)
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

// CreateBacking creates or truncates a backing file and sizes it to size
// bytes. The file is removed again if sizing fails.
func CreateBacking(fsys FileSystem, path string, size int64) (File, error) {
	f, err := fsys.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, BackingPerm)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		_ = fsys.Remove(path)
		return nil, err
	}
	return f, nil
}

// OpenBacking opens an existing backing file for mapping.
func OpenBacking(fsys FileSystem, path string) (File, error) {
	return fsys.OpenFile(path, os.O_RDWR, 0)
}

// LocalFS is the operating system's file system.
type LocalFS struct{}

func (LocalFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (LocalFS) Stat(name string) (os.FileInfo, error)        { return os.Stat(name) }
func (LocalFS) ReadDir(name string) ([]os.DirEntry, error)   { return os.ReadDir(name) }
func (LocalFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (LocalFS) Rename(oldpath, newpath string) error         { return os.Rename(oldpath, newpath) }
func (LocalFS) Remove(name string) error                     { return os.Remove(name) }

// Default is the file system used unless an option replaces it.
var Default FileSystem = LocalFS{}
