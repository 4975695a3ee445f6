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

// Package kernel implements the process lifecycle and scheduling core:
// the process table and state machine, the five scheduling disciplines,
// the cooperative context-switch protocol, wait/wakeup/reparenting, user
// alarms, and the copy-on-write fault path (spec.md §2).
package kernel

import (
	"gvisor.dev/gvisor/pkg/atomicbitops"
	"github.com/talonforge/rvsentry/pkg/sentry/arch"
	"github.com/talonforge/rvsentry/pkg/sentry/mm"
)

// State is a Process's position in the state machine of spec.md §3.
type State int

// The six process states.
const (
	Unused State = iota
	Used
	Sleeping
	Runnable
	Running
	Zombie
)

// String implements fmt.Stringer, matching the debug labels of
// original_source/kernel/proc.c's procdump.
func (s State) String() string {
	switch s {
	case Unused:
		return "unused"
	case Used:
		return "used"
	case Sleeping:
		return "sleep "
	case Runnable:
		return "runble"
	case Running:
		return "run   "
	case Zombie:
		return "zombie"
	default:
		return "???"
	}
}

// lotteryState is the LBS-only scheduling fields (spec.md §3).
type lotteryState struct {
	tickets int
}

// priorityState is the PBS-only scheduling fields (spec.md §4.6's
// dynamic-priority discipline): a static priority set by set_priority,
// a niceness derived from how much of the last scheduling window was
// spent sleeping versus running, and the window counters niceness is
// computed from.
type priorityState struct {
	priority  int
	niceness  int
	sched     int // number of times selected, for waitx-style stats
	winRun    int // ticks run since last selection
	winSleep  int // ticks slept since last selection
}

// mlfqState is the MLFQ-only scheduling fields.
type mlfqState struct {
	priority   int
	inQueue    bool
	quanta     int
	ticksUsed  int // ticks consumed in the current dispatch, vs. 1<<priority
	qInTime    uint64
	qrtime     []uint64 // len == NMLFQ
}

// Process is one slot of the fixed-size process table (spec.md §3).
// Every mutation of state, queueing, or accounting fields happens with
// lock held (the "Invariants" of spec.md §3).
type Process struct {
	lock processMutex

	// index is this Process's fixed slot in the Kernel's table, and
	// generation counts how many times allocproc has handed the slot
	// out. No code compares generation: parent is a plain *Process
	// pointer, and stale references are not detected through it.
	index      int
	generation uint64

	pid    int
	name   string
	parent *Process

	state State

	// chan_ is the opaque wait channel: nonzero iff Sleeping.
	chan_  uintptr
	killed bool
	xstate int32

	sz int64 // bytes of user address space

	ctime   atomicbitops.Uint64
	rtime   atomicbitops.Uint64
	stime   atomicbitops.Uint64
	endtime atomicbitops.Uint64
	// schedCount is read lock-free by procdump (spec.md §6's "never
	// takes locks; tolerates torn reads").
	schedCount atomicbitops.Uint64

	straceMaskBits uint64

	// Alarm fields (spec.md §4.8).
	alarmTicks  int
	alarmHndlr  uintptr
	timepassed  int
	handling    bool
	trapframe   *arch.Trapframe
	bkupTframe  *arch.Trapframe

	// pt is the user page table owned by the external memory manager
	// (spec.md §1 "Out of scope"); the core only ever asks mm.Manager
	// to create, copy, or free it.
	pt *mm.PageTable

	lottery  lotteryState
	priority priorityState
	mlfq     mlfqState

	// workload is the simulated user program this process runs; see
	// Task for the syscall surface it's given. If workload returns
	// without calling Task.Exit, its return value is the exit status; a
	// nil workload exits with status 0.
	workload Workload

	// resume/done/reap implement the swtch rendezvous of E.1: the
	// scheduler sends on resume and blocks on done to dispatch this
	// process; the process sends on done and blocks on resume to
	// suspend itself. Closing reap, done only after the slot has been
	// freed, unblocks a process parked forever after its own exit.
	resume chan *CPU
	done   chan struct{}
	reap   chan struct{}
}

// PID returns p's process ID. Safe to call without p's lock: pid is
// immutable from allocation until freeproc, and freeproc requires the
// caller already observed Zombie under lock.
func (p *Process) PID() int { return p.pid }

// Name returns p's process name.
func (p *Process) Name() string { return p.name }

// State returns p's current state. Racy without p.lock held; intended
// for debug/test use only (callers needing a consistent read should hold
// the lock themselves).
func (p *Process) State() State { return p.state }

// Killed reports whether p has been asynchronously marked for
// termination (spec.md §4.4).
func (p *Process) Killed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.killed
}
