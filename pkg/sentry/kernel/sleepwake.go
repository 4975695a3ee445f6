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

// sleep blocks the calling process on chanAddr (spec.md §4.4): the
// caller must already hold p.lock, as with the general
// acquire(&p->lock) pattern around original_source/kernel/proc.c's
// sleep(). sched() releases the lock as part of the park (E.1); sleep
// reacquires it just to clear chan_ before returning, so callers
// consistently observe the lock not held on return, same as sched().
func (t *Task) sleep(chanAddr uintptr) {
	p := t.p
	p.chan_ = chanAddr
	p.state = Sleeping
	t.sched()
	p.lock.Lock()
	p.chan_ = 0
	p.lock.Unlock()
}

// Sleep blocks the calling Task on an arbitrary wait channel identified
// by chanAddr until a matching wakeup, for workloads modelling blocking
// I/O or condition waits (spec.md §4.4).
func (t *Task) Sleep(chanAddr uintptr) {
	t.p.lock.Lock()
	t.sleep(chanAddr)
}

// wakeup moves every Sleeping process waiting on chanAddr to Runnable
// (spec.md §4.4). Safe to call while holding no process lock.
func (k *Kernel) wakeup(chanAddr uintptr) {
	k.forEachProc(func(p *Process) {
		p.lock.Lock()
		if p.state == Sleeping && p.chan_ == chanAddr {
			p.state = Runnable
		}
		p.lock.Unlock()
	})
}

// Wakeup is the public form of wakeup, for workloads and syscall
// adapters signalling a condition.
func (k *Kernel) Wakeup(chanAddr uintptr) { k.wakeup(chanAddr) }

// kill marks the process with the given pid for termination and, if it
// is Sleeping, moves it to Runnable so it observes the kill promptly
// (spec.md §4.4). Returns false if no such process exists.
func (k *Kernel) kill(pid int) bool {
	found := false
	k.forEachProc(func(p *Process) {
		p.lock.Lock()
		if p.pid == pid && p.state != Unused {
			p.killed = true
			if p.state == Sleeping {
				p.state = Runnable
			}
			found = true
		}
		p.lock.Unlock()
	})
	return found
}

// Kill implements the kill() syscall of spec.md §6.
func (k *Kernel) Kill(pid int) bool { return k.kill(pid) }
