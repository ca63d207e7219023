package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the default error returned by injected faults.
var ErrInjected = errors.New("fs: injected fault")

// Fault describes how files matching a rule misbehave.
type Fault struct {
	// FailAfterBytes fails writes once a file has received this many bytes. -1 disables.
	FailAfterBytes int64
	FailOnOpen     bool
	FailOnSync     bool
	FailOnClose    bool
	FailOnRemove   bool
	FailOnLink     bool
	// Err overrides ErrInjected.
	Err error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// FaultyFS wraps a FileSystem and injects errors for paths containing a
// registered pattern. The last registered matching rule wins.
type FaultyFS struct {
	FS FileSystem

	mu       sync.Mutex
	patterns []string
	rules    map[string]Fault
}

// NewFaultyFS wraps inner, or Default when inner is nil.
func NewFaultyFS(inner FileSystem) *FaultyFS {
	if inner == nil {
		inner = Default
	}
	return &FaultyFS{FS: inner, rules: make(map[string]Fault)}
}

// AddRule injects fault for every path containing pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rules[pattern]; !ok {
		f.patterns = append(f.patterns, pattern)
	}
	f.rules[pattern] = fault
}

// ClearRules removes every rule.
func (f *FaultyFS) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = nil
	f.rules = make(map[string]Fault)
}

func (f *FaultyFS) match(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.patterns) - 1; i >= 0; i-- {
		if strings.Contains(name, f.patterns[i]) {
			return f.rules[f.patterns[i]], true
		}
	}
	return Fault{FailAfterBytes: -1}, false
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	fault, _ := f.match(name)
	if fault.FailOnOpen {
		return nil, fault.err()
	}
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, fault: fault}, nil
}

func (f *FaultyFS) Link(oldname, newname string) error {
	if fault, _ := f.match(newname); fault.FailOnLink {
		return fault.err()
	}
	return f.FS.Link(oldname, newname)
}

func (f *FaultyFS) Remove(name string) error {
	if fault, _ := f.match(name); fault.FailOnRemove {
		return fault.err()
	}
	return f.FS.Remove(name)
}

func (f *FaultyFS) RemoveAll(path string) error {
	if fault, _ := f.match(path); fault.FailOnRemove {
		return fault.err()
	}
	return f.FS.RemoveAll(path)
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error)        { return f.FS.Stat(name) }
func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error { return f.FS.MkdirAll(path, perm) }
func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error)   { return f.FS.ReadDir(name) }

type faultyFile struct {
	File
	fault   Fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if ff.fault.FailAfterBytes >= 0 && ff.written+int64(len(p)) > ff.fault.FailAfterBytes {
		return 0, ff.fault.err()
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fault.err()
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	err := ff.File.Close()
	if ff.fault.FailOnClose {
		return ff.fault.err()
	}
	return err
}
