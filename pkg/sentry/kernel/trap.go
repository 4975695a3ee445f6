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

// ticksSentinel gives the global clock a stable wait-channel address,
// the way original_source/kernel/trap.c's clockintr wakes sleepers on
// &ticks.
var ticksSentinel int

func ticksChan() uintptr { return uintptr(unsafe.Pointer(&ticksSentinel)) }

// Tick advances the global clock by one (spec.md §4.7). It is the
// once-per-tick accounting pass original_source/kernel/proc.c calls
// update_time: every Running process accrues a tick of rtime, every
// Sleeping process accrues a tick of stime, and anything blocked in
// SleepTicks is woken.
func (k *Kernel) Tick() {
	k.ticks.Add(1)
	k.forEachProc(func(p *Process) {
		p.lock.Lock()
		switch p.state {
		case Running:
			p.rtime.Add(1)
			p.priority.winRun++
		case Sleeping:
			p.stime.Add(1)
			p.priority.winSleep++
		}
		p.lock.Unlock()
	})
	k.wakeup(ticksChan())
}

// HandleTimerTick is the per-hart timer-interrupt path for the Task
// currently Running on this tick (spec.md §4.7 "preemption decision",
// §4.8 alarm delivery). If an alarm fires, it redirects the trapframe's
// saved program counter to the registered handler after snapshotting the
// original into the backup trapframe. It then asks the installed
// Scheduler whether this process must yield before returning to user
// mode, and if so, yields.
func (t *Task) HandleTimerTick() {
	p := t.p
	p.lock.Lock()
	if tickAlarm(p) {
		p.trapframe.EPC = uint64(p.alarmHndlr)
	}
	mustYield := t.k.sched.OnTick(t.k, p)
	p.lock.Unlock()

	if mustYield {
		t.yield()
	}
}

// SleepTicks blocks the calling Task until at least n clock ticks have
// elapsed, matching the sleep() syscall of original_source/kernel/sysproc.c.
func (t *Task) SleepTicks(n int) {
	target := t.k.Ticks() + uint64(n)
	for t.k.Ticks() < target {
		if t.p.Killed() {
			return
		}
		t.Sleep(ticksChan())
	}
}

// Uptime returns the number of ticks since boot (spec.md §6 "uptime").
func (t *Task) Uptime() uint64 { return t.k.Ticks() }
