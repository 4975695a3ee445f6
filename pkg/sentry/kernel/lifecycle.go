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

import "github.com/talonforge/rvsentry/pkg/sentry/mm"

// defaultGrowPerm is the permission set sbrk-driven growth maps with:
// readable, writable, and user-accessible, matching
// original_source/kernel/proc.c's growproc call into uvmalloc.
const defaultGrowPerm = mm.PTER | mm.PTEW | mm.PTEU

// initcode is the placeholder first-process image handed to Uvmfirst,
// standing in for original_source/kernel/initcode.S: the core never
// interprets it, it only asks the memory manager to map it in.
var initcode = []byte{0}

// UserInit creates the first process in the table, runs it under
// workload, and installs it as the Kernel's init process (spec.md §4.2
// "userinit"). It must be called exactly once; scheduler loops may
// already be running.
func (k *Kernel) UserInit(workload Workload) *Process {
	p := k.allocproc()
	if p == nil {
		panic("kernel: userinit: process table full")
	}
	if err := k.mm.Uvmfirst(p.pt, initcode); err != nil {
		panic("kernel: userinit: uvmfirst: " + err.Error())
	}
	p.sz = int64(len(initcode))
	p.name = "init"
	p.parent = nil
	p.workload = workload
	p.state = Runnable
	k.initproc = p
	p.lock.Unlock()

	k.wg.Add(1)
	go k.run(p)
	return p
}

// Fork creates a new process that is a copy of the caller's address
// space and runs child as its workload, returning the child's pid
// (spec.md §4.2 "fork"). It returns -1 if the process table is full or
// the address-space copy fails, matching original_source/kernel/proc.c's
// fork returning -1 without side effects on the parent.
func (t *Task) Fork(child Workload) int {
	k, parent := t.k, t.p

	np := k.allocproc()
	if np == nil {
		return -1
	}

	if err := k.mm.Uvmcopy(parent.pt, np.pt, uint64(parent.sz)); err != nil {
		k.freeproc(np)
		np.lock.Unlock()
		return -1
	}
	np.sz = parent.sz

	*np.trapframe = *parent.trapframe
	np.trapframe.SetA0(0) // fork returns 0 in the child

	np.parent = parent
	np.name = parent.name
	np.workload = child
	np.state = Runnable
	pid := np.pid
	np.lock.Unlock()

	k.wg.Add(1)
	go k.run(np)
	return pid
}

// GrowProc changes the calling process's address space size by n bytes
// (n may be negative), matching original_source/kernel/proc.c's
// growproc, used to implement the sbrk syscall (spec.md §6).
func (t *Task) GrowProc(n int64) error {
	p := t.p
	oldsz := uint64(p.sz)
	var newsz uint64
	var err error
	if n > 0 {
		newsz, err = t.k.mm.Uvmalloc(p.pt, oldsz, oldsz+uint64(n), defaultGrowPerm)
		if err != nil {
			return err
		}
	} else if n < 0 {
		newsz = t.k.mm.Uvmdealloc(p.pt, oldsz, oldsz+uint64(n))
	} else {
		newsz = oldsz
	}
	p.sz = int64(newsz)
	return nil
}
