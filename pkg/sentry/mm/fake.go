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

package mm

import "sync"

// entry is one physical page's backing bytes plus its refcount. A
// refcount greater than one means the page is shared copy-on-write
// between two or more address spaces (spec.md §9's cowfault caveat: the
// core frees the old page unconditionally, which is only safe once the
// manager reports the refcount has reached one).
type entry struct {
	data []byte
	refs int
}

// Fake is an in-process Manager good enough to exercise fork's COW setup
// and cowfault's page duplication in tests; it is not a real page
// allocator.
type Fake struct {
	mu     sync.Mutex
	pages  map[uint64]*entry
	nextID uint64

	mappings map[*PageTable]map[uint64]mapping
}

type mapping struct {
	page *Page
	perm PTEFlags
}

// NewFake returns an empty Fake memory manager.
func NewFake() *Fake {
	return &Fake{
		pages:    make(map[uint64]*entry),
		mappings: make(map[*PageTable]map[uint64]mapping),
	}
}

func (f *Fake) alloc() *Page {
	f.nextID++
	id := f.nextID
	f.pages[id] = &entry{data: make([]byte, PageSize), refs: 1}
	return &Page{id: id}
}

// Kalloc implements Manager.
func (f *Fake) Kalloc() (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alloc(), nil
}

// Kfree implements Manager.
func (f *Fake) Kfree(pa *Page) {
	if pa == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.pages[pa.id]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(f.pages, pa.id)
	}
}

// Refs reports pa's current refcount, for tests asserting the COW
// invariant of spec.md §9.
func (f *Fake) Refs(pa *Page) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.pages[pa.id]; ok {
		return e.refs
	}
	return 0
}

// Uvmcreate implements Manager.
func (f *Fake) Uvmcreate() (*PageTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	pt := &PageTable{id: f.nextID}
	f.mappings[pt] = make(map[uint64]mapping)
	return pt, nil
}

// Uvmfirst implements Manager.
func (f *Fake) Uvmfirst(pt *PageTable, code []byte) error {
	pg, err := f.Kalloc()
	if err != nil {
		return err
	}
	f.mu.Lock()
	copy(f.pages[pg.id].data, code)
	f.mappings[pt][0] = mapping{page: pg, perm: PTER | PTEW | PTEX | PTEU}
	f.mu.Unlock()
	return nil
}

// Uvmalloc implements Manager.
func (f *Fake) Uvmalloc(pt *PageTable, oldsz, newsz uint64, perm PTEFlags) (uint64, error) {
	if newsz <= oldsz {
		return oldsz, nil
	}
	for va := roundUp(oldsz); va < newsz; va += PageSize {
		pg, err := f.Kalloc()
		if err != nil {
			return 0, err
		}
		f.mu.Lock()
		f.mappings[pt][va] = mapping{page: pg, perm: perm | PTEU}
		f.mu.Unlock()
	}
	return newsz, nil
}

// Uvmdealloc implements Manager.
func (f *Fake) Uvmdealloc(pt *PageTable, oldsz, newsz uint64) uint64 {
	if newsz >= oldsz {
		return oldsz
	}
	f.Uvmunmap(pt, roundUp(newsz), (roundUp(oldsz)-roundUp(newsz))/PageSize, true)
	return newsz
}

// Uvmcopy implements Manager: every mapped page below sz is shared
// (refcount incremented), matching fork's copy-on-write setup.
func (f *Fake) Uvmcopy(src, dst *PageTable, sz uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for va, m := range f.mappings[src] {
		if va >= sz {
			continue
		}
		f.pages[m.page.id].refs++
		f.mappings[dst][va] = mapping{page: m.page, perm: m.perm &^ PTEW}
	}
	return nil
}

// Uvmunmap implements Manager.
func (f *Fake) Uvmunmap(pt *PageTable, va uint64, npages uint64, freePages bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := uint64(0); i < npages; i++ {
		addr := va + i*PageSize
		m, ok := f.mappings[pt][addr]
		if !ok {
			continue
		}
		delete(f.mappings[pt], addr)
		if freePages {
			e := f.pages[m.page.id]
			e.refs--
			if e.refs <= 0 {
				delete(f.pages, m.page.id)
			}
		}
	}
}

// Uvmfree implements Manager.
func (f *Fake) Uvmfree(pt *PageTable, sz uint64) {
	f.Uvmunmap(pt, 0, roundUp(sz)/PageSize, true)
	f.mu.Lock()
	delete(f.mappings, pt)
	f.mu.Unlock()
}

// Mappages implements Manager.
func (f *Fake) Mappages(pt *PageTable, va uint64, pa *Page, perm PTEFlags) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mappings[pt][va] = mapping{page: pa, perm: perm}
	return nil
}

// Walk implements Manager.
func (f *Fake) Walk(pt *PageTable, va uint64) (*Page, PTEFlags, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := (va / PageSize) * PageSize
	m, ok := f.mappings[pt][page]
	if !ok {
		return nil, 0, false
	}
	return m.page, m.perm, true
}

// Copyout implements Manager.
func (f *Fake) Copyout(pt *PageTable, va uint64, src []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := (va / PageSize) * PageSize
	off := va - page
	m, ok := f.mappings[pt][page]
	if !ok {
		return errUnmapped
	}
	e := f.pages[m.page.id]
	if int(off)+len(src) > len(e.data) {
		return errUnmapped
	}
	copy(e.data[off:], src)
	return nil
}

// Copyin implements Manager.
func (f *Fake) Copyin(pt *PageTable, va uint64, dst []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := (va / PageSize) * PageSize
	off := va - page
	m, ok := f.mappings[pt][page]
	if !ok {
		return errUnmapped
	}
	e := f.pages[m.page.id]
	if int(off)+len(dst) > len(e.data) {
		return errUnmapped
	}
	copy(dst, e.data[off:])
	return nil
}

// CowFault duplicates the page backing va in pt, as cowfault
// (spec.md §4.9) would: it checks only that va is mapped (the existing
// permission bits are not inspected), allocates a fresh page, copies the
// contents, drops the old page's reference, and rewrites the mapping
// with R/W/X/U permissions.
func (f *Fake) CowFault(pt *PageTable, va uint64) error {
	page := (va / PageSize) * PageSize
	f.mu.Lock()
	m, ok := f.mappings[pt][page]
	if !ok {
		f.mu.Unlock()
		return errUnmapped
	}
	old := f.pages[m.page.id]
	f.mu.Unlock()

	fresh, err := f.Kalloc()
	if err != nil {
		return err
	}
	f.mu.Lock()
	copy(f.pages[fresh.id].data, old.data)
	f.mu.Unlock()

	f.Kfree(m.page)

	f.mu.Lock()
	f.mappings[pt][page] = mapping{page: fresh, perm: PTER | PTEW | PTEX | PTEU}
	f.mu.Unlock()
	return nil
}

func roundUp(sz uint64) uint64 {
	return (sz + PageSize - 1) / PageSize * PageSize
}

var errUnmapped = fakeError("mm: unmapped address")

type fakeError string

func (e fakeError) Error() string { return string(e) }
