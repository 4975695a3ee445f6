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

// fcfsScheduler dispatches whichever Runnable process was created
// earliest and never preempts it (spec.md §4.6): a process keeps the
// CPU until it blocks, yields voluntarily, or exits.
type fcfsScheduler struct{}

// Select implements Scheduler. It scans the whole table holding at most
// two process locks at once (the current winner and the candidate under
// consideration), always acquired in ascending table-index order, so
// concurrent scans on other harts can never deadlock against this one.
func (fcfsScheduler) Select(k *Kernel, cpu *CPU) bool {
	var winner *Process
	var winnerCtime uint64
	for _, p := range k.procs {
		p.lock.Lock()
		if p.state != Runnable {
			p.lock.Unlock()
			continue
		}
		ctime := p.ctime.Load()
		if winner == nil || ctime < winnerCtime {
			if winner != nil {
				winner.lock.Unlock()
			}
			winner, winnerCtime = p, ctime
		} else {
			p.lock.Unlock()
		}
	}
	if winner == nil {
		return false
	}
	k.dispatch(cpu, winner)
	return true
}

// OnTick implements Scheduler: FCFS never preempts on a timer tick.
func (fcfsScheduler) OnTick(k *Kernel, p *Process) bool { return false }

// Name implements Scheduler.
func (fcfsScheduler) Name() config.Discipline { return config.FCFS }
