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

package kernel

import (
	"fmt"

	"github.com/talonforge/rvsentry/pkg/sentry/mm"
)

var errPageNotMapped = fmt.Errorf("kernel: cowfault: unmapped page")
var errPageNotUser = fmt.Errorf("kernel: cowfault: page not user-accessible")

// cowFault handles a store page fault on va by giving the faulting
// address space its own writable copy of a shared page (spec.md §4.9,
// "cowfault"). It is built only from the mm.Manager collaborator
// contract, not from mm.Fake's CowFault convenience method, since the
// core never assumes a concrete memory-manager implementation.
//
// It rejects a fault on a page the PTE doesn't mark user-accessible,
// mirroring original_source/kernel/trap.c's cowfault checking PTE_U
// before touching the page, and is a no-op (returns nil) if va is
// already mapped writable: per spec.md §9's open question, the core
// trusts the memory manager never reports a shared page as writable, so
// a second fault on an already-private page is treated as spurious
// rather than an error.
func cowFault(mgr mm.Manager, pt *mm.PageTable, va uint64) error {
	page := (va / mm.PageSize) * mm.PageSize
	old, perm, ok := mgr.Walk(pt, page)
	if !ok {
		return errPageNotMapped
	}
	if perm&mm.PTEU == 0 {
		return errPageNotUser
	}
	if perm&mm.PTEW != 0 {
		return nil
	}

	buf := make([]byte, mm.PageSize)
	if err := mgr.Copyin(pt, page, buf); err != nil {
		return err
	}

	fresh, err := mgr.Kalloc()
	if err != nil {
		return err
	}
	if err := mgr.Mappages(pt, page, fresh, perm|mm.PTEW); err != nil {
		mgr.Kfree(fresh)
		return err
	}
	if err := mgr.Copyout(pt, page, buf); err != nil {
		return err
	}
	mgr.Kfree(old)
	return nil
}

// CowFault is the syscall/trap-path entry point for a copy-on-write
// store fault on the calling Task's address space.
func (t *Task) CowFault(va uint64) error {
	return cowFault(t.k.mm, t.p.pt, va)
}
