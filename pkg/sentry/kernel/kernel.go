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
	"sync"

	"gvisor.dev/gvisor/pkg/atomicbitops"
	"github.com/talonforge/rvsentry/config"
	"github.com/talonforge/rvsentry/pkg/sentry/fs"
	"github.com/talonforge/rvsentry/pkg/sentry/mm"
)

// Kernel is the process table, scheduler, and global locks of spec.md §3
// ("Global lifecycle") bundled into one owning type, in the style of
// gVisor's own Kernel/TaskSet split (other_examples' task_start.go:
// "TaskSet.NewTask").
type Kernel struct {
	cfg config.Config

	mm mm.Manager
	fs fs.System

	procs []*Process

	pidMu   pidMutex
	nextPID int

	waitMu waitMutex

	tickMu tickMutex
	ticks  atomicbitops.Uint64

	cpus []*CPU
	sched Scheduler

	mlfq *mlfqQueues

	rngMu sync.Mutex
	rng   uint64 // Park-Miller LCG state, spec.md §4.6

	initproc *Process

	fsInitOnce sync.Once

	wg sync.WaitGroup
}

// New builds an idle Kernel: every slot Unused, locks initialized, and
// the discipline named by cfg.Discipline installed (spec.md §4.2
// "procinit", §6 "Build-time selection").
func New(cfg config.Config, memMgr mm.Manager, fsys fs.System) *Kernel {
	k := &Kernel{
		cfg:   cfg,
		mm:    memMgr,
		fs:    fsys,
		procs: make([]*Process, cfg.NPROC),
		rng:   1, // seeded to 1, spec.md §4.6
	}
	k.nextPID = 1
	for i := range k.procs {
		k.procs[i] = &Process{
			index:  i,
			state:  Unused,
			resume: make(chan *CPU),
			done:   make(chan struct{}),
			reap:   make(chan struct{}),
		}
	}
	k.cpus = make([]*CPU, cfg.NCPU)
	for i := range k.cpus {
		k.cpus[i] = NewCPU(i)
	}
	if cfg.Discipline == config.MLFQ {
		k.mlfq = newMLFQQueues(cfg.NMLFQ, cfg.NPROC)
	}
	k.sched = newScheduler(cfg.Discipline)
	return k
}

// Config returns the Kernel's active configuration.
func (k *Kernel) Config() config.Config { return k.cfg }

// Ticks returns the number of clock ticks since boot. Lock-free: procdump
// and other debug consumers tolerate a torn read (spec.md §6).
func (k *Kernel) Ticks() uint64 { return k.ticks.Load() }

// CPUs returns the Kernel's per-hart records.
func (k *Kernel) CPUs() []*CPU { return k.cpus }

// InitProc returns the first process, or nil before UserInit has run.
func (k *Kernel) InitProc() *Process { return k.initproc }

// allocPID returns a fresh, monotonically increasing PID (spec.md §4.2
// "allocpid"). pid_lock is a leaf in the lock order (spec.md §4.1).
func (k *Kernel) allocPID() int {
	k.pidMu.Lock()
	pid := k.nextPID
	k.nextPID++
	k.pidMu.Unlock()
	return pid
}

// forEachProc calls f for every slot in table order, as the scheduler
// scans and wakeup/kill do. f must not itself call forEachProc.
func (k *Kernel) forEachProc(f func(p *Process)) {
	for _, p := range k.procs {
		f(p)
	}
}
