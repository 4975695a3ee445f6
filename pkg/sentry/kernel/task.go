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

import "runtime"

// Task is the syscall surface spec.md §6 hands to a running Workload: it
// is the Go-native stand-in for a trapped syscall's argument bundle,
// bound to the Process it runs as and the CPU it is presently dispatched
// on (other_examples' task_context.go follows the same "handle bound to
// one goroutine" shape for gVisor's own Task type).
type Task struct {
	k   *Kernel
	p   *Process
	cpu *CPU
}

// Kernel returns the owning Kernel.
func (t *Task) Kernel() *Kernel { return t.k }

// Process returns the Process this Task is bound to.
func (t *Task) Process() *Process { return t.p }

// reapAndExit terminates the calling goroutine permanently. It is
// reached only from sched()'s reap branch: a process parked after its
// own Exit, once freeproc has recycled its slot.
func reapAndExit() {
	runtime.Goexit()
}

// run is the body of the goroutine backing one process-table slot for
// its entire lifetime (spec.md §9's "a process is a live goroutine
// parked on a channel, not freed memory"). It blocks on resume for its
// first dispatch, completes forkret, runs the installed Workload, and
// reaps itself into the reap-parked state the slot's next freeproc
// unblocks.
func (k *Kernel) run(p *Process) {
	defer k.wg.Done()
	cpu := <-p.resume
	k.forkret(p)

	t := &Task{k: k, p: p, cpu: cpu}
	status := int32(0)
	if p.workload != nil {
		status = int32(p.workload(t))
	}

	p.lock.Lock()
	alreadyZombie := p.state == Zombie
	p.lock.Unlock()
	if !alreadyZombie {
		k.exit(t, status)
	}

	// exit() never returns: its final sched() call only returns via the
	// reap branch, which calls reapAndExit(). This line is unreachable
	// but documents the invariant for readers.
	reapAndExit()
}
