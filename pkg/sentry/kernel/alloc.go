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
	"github.com/talonforge/rvsentry/pkg/sentry/arch"
)

// allocproc scans for an Unused slot and initializes it, returning it
// with its lock still held (spec.md §4.2). Returns nil if the table is
// full or an allocation failed; any partial state is freed first.
func (k *Kernel) allocproc() *Process {
	var found *Process
	for _, p := range k.procs {
		p.lock.Lock()
		if p.state == Unused {
			found = p
			break
		}
		p.lock.Unlock()
	}
	if found == nil {
		return nil
	}
	p := found

	p.generation++
	p.pid = k.allocPID()
	p.ctime.Store(k.ticks.Load())
	p.rtime.Store(0)
	p.stime.Store(0)
	p.endtime.Store(0)
	p.schedCount.Store(0)
	p.killed = false
	p.xstate = 0
	p.chan_ = 0

	switch k.cfg.Discipline {
	case config.Lottery:
		p.lottery.tickets = 1
	case config.PBS:
		p.priority = priorityState{priority: 60, niceness: 5}
	case config.MLFQ:
		p.mlfq = mlfqState{
			priority: 0,
			inQueue:  false,
			quanta:   1,
			qInTime:  k.ticks.Load(),
			qrtime:   make([]uint64, k.cfg.NMLFQ),
		}
	}

	p.trapframe = &arch.Trapframe{}
	p.bkupTframe = &arch.Trapframe{}
	p.timepassed = 0
	p.alarmTicks = 0
	p.alarmHndlr = 0
	p.handling = false

	pt, err := k.mm.Uvmcreate()
	if err != nil {
		p.trapframe = nil
		p.bkupTframe = nil
		p.lock.Unlock()
		return nil
	}
	p.pt = pt
	p.sz = 0

	p.state = Used
	return p
}

// freeproc releases p's trapframes and page table and resets its scalar
// fields to the zero state freeproc in original_source/kernel/proc.c
// leaves behind. p.lock must be held on entry and remains held on
// return.
func (k *Kernel) freeproc(p *Process) {
	if p.pt != nil {
		k.mm.Uvmfree(p.pt, uint64(p.sz))
		p.pt = nil
	}
	p.trapframe = nil
	p.bkupTframe = nil
	p.sz = 0
	p.pid = 0
	p.parent = nil
	p.name = ""
	p.chan_ = 0
	p.killed = false
	p.xstate = 0
	p.rtime.Store(0)
	p.stime.Store(0)
	p.schedCount.Store(0)
	p.endtime.Store(0)
	p.straceMaskBits = 0
	switch k.cfg.Discipline {
	case config.PBS:
		p.priority = priorityState{priority: 60, niceness: 5}
	case config.Lottery:
		p.lottery.tickets = 1
	}
	p.state = Unused

	// Unblock the goroutine this process was running as, if it is
	// parked in sched() after its own exit (E.1): closing reap causes
	// that sched() call's select to take the reap branch instead of
	// waiting on resume forever.
	close(p.reap)
	p.reap = make(chan struct{})
}
