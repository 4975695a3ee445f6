// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fs declares the external filesystem collaborator contract of
// spec.md §6 (namei/idup/iput/begin_op/end_op/filedup/fileclose/fsinit),
// out of scope for the process/scheduling core per spec.md §1.
package fs

import "sync"

// Inode is an opaque reference-counted filesystem node.
type Inode struct {
	Path string

	mu   sync.Mutex
	refs int
}

// File is an opaque reference-counted open-file description.
type File struct {
	Inode *Inode

	mu   sync.Mutex
	refs int
}

// System is the external filesystem collaborator contract consumed by
// the kernel core.
type System interface {
	// Fsinit mounts the root filesystem on device dev. Must run in the
	// context of a regular process, since it may block (spec.md §4.5,
	// forkret's first-invocation filesystem initialization).
	Fsinit(dev int) error
	// Namei resolves path to an Inode, taking a reference.
	Namei(path string) (*Inode, error)
	// Idup takes an additional reference on ip.
	Idup(ip *Inode) *Inode
	// Iput drops a reference on ip.
	Iput(ip *Inode)
	// BeginOp/EndOp bracket a filesystem transaction.
	BeginOp()
	EndOp()
	// Filedup takes an additional reference on f.
	Filedup(f *File) *File
	// Fileclose drops a reference on f, closing it at zero.
	Fileclose(f *File)
}

// Fake is an in-memory System with reference-counted inodes and files.
// The kernel core calls only its Fsinit (from forkret): processes hold no
// open files or working directory, so exit closes no files and drops no
// cwd, and userinit looks up no root inode.
type Fake struct {
	mu        sync.Mutex
	inodes    map[string]*Inode
	inited    bool
}

// NewFake returns a Fake filesystem with only "/" present.
func NewFake() *Fake {
	f := &Fake{inodes: make(map[string]*Inode)}
	f.inodes["/"] = &Inode{Path: "/", refs: 1}
	return f
}

// Fsinit implements System.
func (f *Fake) Fsinit(dev int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inited = true
	return nil
}

// Namei implements System.
func (f *Fake) Namei(path string) (*Inode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ip, ok := f.inodes[path]
	if !ok {
		ip = &Inode{Path: path}
		f.inodes[path] = ip
	}
	ip.mu.Lock()
	ip.refs++
	ip.mu.Unlock()
	return ip, nil
}

// Idup implements System.
func (f *Fake) Idup(ip *Inode) *Inode {
	if ip == nil {
		return nil
	}
	ip.mu.Lock()
	ip.refs++
	ip.mu.Unlock()
	return ip
}

// Iput implements System.
func (f *Fake) Iput(ip *Inode) {
	if ip == nil {
		return
	}
	ip.mu.Lock()
	ip.refs--
	ip.mu.Unlock()
}

// BeginOp implements System.
func (f *Fake) BeginOp() {}

// EndOp implements System.
func (f *Fake) EndOp() {}

// Filedup implements System.
func (f *Fake) Filedup(file *File) *File {
	if file == nil {
		return nil
	}
	file.mu.Lock()
	file.refs++
	file.mu.Unlock()
	return file
}

// Fileclose implements System.
func (f *Fake) Fileclose(file *File) {
	if file == nil {
		return
	}
	file.mu.Lock()
	file.refs--
	file.mu.Unlock()
}
