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

import "github.com/talonforge/rvsentry/config"

// mlfqScheduler is the multi-level feedback queue discipline (spec.md
// §4.6): NMLFQ priority levels, each a FIFO; a process runs for
// 1<<priority ticks before being demoted one level, and is promoted one
// level after waiting AGETICKS ticks unselected, to bound
// starvation (spec.md §9's aging requirement).
type mlfqScheduler struct{}

// Select implements Scheduler. It first folds every Runnable-but-not-
// queued process into its level's queue, then ages out any process that
// has waited too long, then dispatches whatever sits at the front of the
// lowest-numbered non-empty level.
func (s mlfqScheduler) Select(k *Kernel, cpu *CPU) bool {
	now := k.Ticks()
	nlevels := len(k.mlfq.levels)

	for _, p := range k.procs {
		p.lock.Lock()
		if p.state == Runnable && !p.mlfq.inQueue {
			p.mlfq.inQueue = true
			p.mlfq.qInTime = now
			level := p.mlfq.priority
			p.lock.Unlock()
			k.mlfq.push(level, p)
			continue
		}
		p.lock.Unlock()
	}

	for level := 1; level < nlevels; level++ {
		for _, p := range k.mlfq.snapshot(level) {
			p.lock.Lock()
			waited := now - p.mlfq.qInTime
			stillQueued := p.mlfq.inQueue && p.state == Runnable
			if stillQueued && waited >= uint64(k.cfg.AGETICKS) {
				p.mlfq.priority--
				p.mlfq.qInTime = now
				newLevel := p.mlfq.priority
				p.lock.Unlock()
				if k.mlfq.remove(level, p) {
					k.mlfq.push(newLevel, p)
				}
				continue
			}
			p.lock.Unlock()
		}
	}

	for level := 0; level < nlevels; level++ {
		for {
			p, ok := k.mlfq.popFront(level)
			if !ok {
				break
			}
			p.lock.Lock()
			if p.state != Runnable {
				// Raced with a state change between enqueue and
				// dispatch (e.g. killed while queued); drop it and try
				// the next one at this level.
				p.mlfq.inQueue = false
				p.lock.Unlock()
				continue
			}
			p.mlfq.inQueue = false
			p.mlfq.ticksUsed = 0
			k.dispatch(cpu, p)
			return true
		}
	}
	return false
}

// OnTick implements Scheduler: yield immediately if a strictly
// higher-priority level has a process waiting (spec.md §4.6 line 125),
// otherwise run until the current level's quantum (1<<priority ticks) is
// exhausted, at which point demote one level (floor at the lowest) and
// force a reselect.
func (s mlfqScheduler) OnTick(k *Kernel, p *Process) bool {
	for level := 0; level < p.mlfq.priority; level++ {
		if k.mlfq.len(level) > 0 {
			p.mlfq.ticksUsed = 0
			return true
		}
	}
	p.mlfq.ticksUsed++
	quantum := 1 << uint(p.mlfq.priority)
	if p.mlfq.ticksUsed < quantum {
		return false
	}
	p.mlfq.ticksUsed = 0
	if p.mlfq.priority < len(k.mlfq.levels)-1 {
		p.mlfq.priority++
	}
	return true
}

// Name implements Scheduler.
func (s mlfqScheduler) Name() config.Discipline { return config.MLFQ }
