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

import "unsafe"

// reparent hands every child of p to the Kernel's init process
// (spec.md §4.3). The caller must already hold k.waitMu, preceding any
// process lock in the global order (spec.md §4.1).
func (k *Kernel) reparent(p *Process) {
	any := false
	k.forEachProc(func(child *Process) {
		if child == p {
			return
		}
		child.lock.Lock()
		if child.parent == p {
			child.parent = k.initproc
			any = true
		}
		child.lock.Unlock()
	})
	if any {
		k.wakeup(ptrOf(k.initproc))
	}
}

// exit ends the calling process: it reparents its children to init,
// wakes its parent, and parks itself as a Zombie until its parent's
// Wait reaps it (spec.md §4.3). exit never returns to its caller; the
// final sched() loop only unblocks via freeproc closing p.reap.
func (k *Kernel) exit(t *Task, status int32) {
	p := t.p
	if p == k.initproc {
		panic("kernel: init exiting")
	}

	k.waitMu.Lock()
	k.reparent(p)
	k.wakeup(ptrOf(p.parent))

	p.lock.Lock()
	p.xstate = status
	p.state = Zombie
	p.endtime.Store(k.ticks.Load())
	k.waitMu.Unlock()

	for {
		t.sched()
	}
}

// ptrOf gives a stable wait-channel address for a Process, mirroring
// original_source/kernel/proc.c's use of the struct proc pointer itself
// as wait()'s sleep channel.
func ptrOf(p *Process) uintptr {
	if p == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(p))
}
