package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the error used when a Fault carries none.
var ErrInjected = errors.New("fs: injected fault")

// Fault defines specific failure behavior.
type Fault struct {
	FailOnOpen     bool
	FailOnTruncate bool
	FailOnSync     bool
	FailOnRemove   bool
	FailOnRename   bool
	// FailAfterBytes fails writes once this many bytes went to the file. -1 disables.
	FailAfterBytes int64
	Err            error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS    FileSystem
	mu    sync.Mutex
	rules map[string]Fault // name substring -> fault
	hits  int
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{FS: fs, rules: make(map[string]Fault)}
}

// AddRule applies fault to every file whose name contains pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// ClearRules removes every rule.
func (f *FaultyFS) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.rules)
}

// Hits returns how many faults have fired.
func (f *FaultyFS) Hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}

func (f *FaultyFS) match(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Longest matching pattern wins so results do not depend on map order.
	var (
		best    Fault
		bestLen = -1
	)
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) && len(pattern) > bestLen {
			best, bestLen = rule, len(pattern)
		}
	}
	if bestLen < 0 {
		return Fault{FailAfterBytes: -1}, false
	}
	return best, true
}

func (f *FaultyFS) hit(err error) error {
	f.mu.Lock()
	f.hits++
	f.mu.Unlock()
	return err
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	fault, ok := f.match(name)
	if ok && fault.FailOnOpen {
		return nil, f.hit(fault.err())
	}
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	if !ok {
		return file, nil
	}
	return &faultyFile{File: file, fs: f, fault: fault}, nil
}

func (f *FaultyFS) Remove(name string) error {
	if fault, ok := f.match(name); ok && fault.FailOnRemove {
		return f.hit(fault.err())
	}
	return f.FS.Remove(name)
}

// Rename matches rules against the destination name.
func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if fault, ok := f.match(newpath); ok && fault.FailOnRename {
		return f.hit(fault.err())
	}
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	return f.FS.Stat(name)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) {
	return f.FS.ReadDir(name)
}

type faultyFile struct {
	File
	fs      *FaultyFS
	fault   Fault
	written int64
}

func (ff *faultyFile) allow(n int) error {
	if ff.fault.FailAfterBytes >= 0 && ff.written+int64(n) > ff.fault.FailAfterBytes {
		return ff.fs.hit(ff.fault.err())
	}
	return nil
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if err := ff.allow(len(p)); err != nil {
		return 0, err
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) WriteAt(p []byte, off int64) (int, error) {
	if err := ff.allow(len(p)); err != nil {
		return 0, err
	}
	n, err := ff.File.WriteAt(p, off)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Truncate(size int64) error {
	if ff.fault.FailOnTruncate {
		return ff.fs.hit(ff.fault.err())
	}
	return ff.File.Truncate(size)
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fs.hit(ff.fault.err())
	}
	return ff.File.Sync()
}
