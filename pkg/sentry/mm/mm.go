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

// Package mm declares the external memory-manager collaborator contract
// of spec.md §6: page-table creation, user address space population, and
// copy-on-write support. These primitives are out of scope for the
// process/scheduling core (spec.md §1, "Out of scope") — the kernel-core
// package consumes them only through the interface below, grounded on
// kalloc/kfree/uvmcopy/mappages/walk/copyout/copyin in
// original_source/kernel/proc.c.
package mm

import "fmt"

// PageSize is the page size assumed throughout (spec.md §6).
const PageSize = 4096

// ErrOOM is returned by Kalloc when no physical page is available,
// surfaced by the core as -1 per spec.md §7.
var ErrOOM = fmt.Errorf("mm: out of physical memory")

// PTEFlags mirrors the PTE_{R,W,X,U} permission bits a page table entry
// may carry.
type PTEFlags uint8

// Permission bits, matching riscv.h's PTE_R/PTE_W/PTE_X/PTE_U.
const (
	PTER PTEFlags = 1 << iota
	PTEW
	PTEX
	PTEU
)

// Page is an opaque handle to one physical page, with a refcount managed
// by the memory manager. The core never inspects its contents directly;
// it only copies through Copyin/Copyout/Uvmcopy.
type Page struct {
	// id is a debug label; real implementations key pages by physical
	// address.
	id uint64
}

// PageTable is an opaque per-process address-space handle.
type PageTable struct {
	// id is a debug label.
	id uint64
}

// Manager is the external memory-manager collaborator contract consumed
// by the kernel core (spec.md §6).
type Manager interface {
	// Kalloc allocates one physical page, or returns ErrOOM.
	Kalloc() (*Page, error)
	// Kfree drops one reference to pa and releases the page once its
	// refcount reaches zero, so it is safe to call on a page that is
	// still shared (spec.md §9's open question).
	Kfree(pa *Page)

	// Uvmcreate returns an empty page table.
	Uvmcreate() (*PageTable, error)
	// Uvmfirst loads code as the first (and only) page of pt's address
	// space, used by userinit.
	Uvmfirst(pt *PageTable, code []byte) error
	// Uvmalloc grows pt's address space from oldsz to newsz, returning
	// the new size or an error.
	Uvmalloc(pt *PageTable, oldsz, newsz uint64, perm PTEFlags) (uint64, error)
	// Uvmdealloc shrinks pt's address space from oldsz to newsz,
	// returning the new size.
	Uvmdealloc(pt *PageTable, oldsz, newsz uint64) uint64
	// Uvmcopy duplicates src's address space of size sz into dst,
	// marking shared pages copy-on-write. Used by fork.
	Uvmcopy(src, dst *PageTable, sz uint64) error
	// Uvmunmap removes npages mappings starting at va.
	Uvmunmap(pt *PageTable, va uint64, npages uint64, freePages bool)
	// Uvmfree tears down pt entirely, freeing any mapped pages below sz.
	Uvmfree(pt *PageTable, sz uint64)
	// Mappages installs a mapping for one page at va with the given
	// permissions.
	Mappages(pt *PageTable, va uint64, pa *Page, perm PTEFlags) error
	// Walk returns the page currently mapped at va and its
	// permissions, or ok=false if unmapped.
	Walk(pt *PageTable, va uint64) (pa *Page, perm PTEFlags, ok bool)

	// Copyout copies len(src) bytes from kernel memory to va in pt's
	// address space.
	Copyout(pt *PageTable, va uint64, src []byte) error
	// Copyin copies len(dst) bytes from va in pt's address space into
	// kernel memory.
	Copyin(pt *PageTable, va uint64, dst []byte) error
}
