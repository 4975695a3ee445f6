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

// dynamicPriority computes PBS's dynamic priority (spec.md §4.6:
// "dp = clamp(priority - niceness + 5, 0, 100)"), deriving niceness from
// how much of the window since this process was last scheduled it spent
// sleeping versus running. A process with no window data yet (just
// created, or just reset by set_priority) is treated as perfectly
// balanced (niceness 5), matching original_source's default.
func dynamicPriority(ps priorityState) int {
	niceness := 5
	if total := ps.winRun + ps.winSleep; total > 0 {
		niceness = 10 * ps.winSleep / total
	}
	dp := ps.priority - niceness + 5
	if dp < 0 {
		dp = 0
	} else if dp > 100 {
		dp = 100
	}
	return dp
}

// pbsScheduler dispatches the Runnable process with the lowest dynamic
// priority (spec.md §4.6's PBS discipline), breaking ties by fewest
// prior schedulings and then earliest creation time.
type pbsScheduler struct{}

// Select implements Scheduler.
func (s pbsScheduler) Select(k *Kernel, cpu *CPU) bool {
	var winner *Process
	var winnerDP int
	for _, p := range k.procs {
		p.lock.Lock()
		if p.state != Runnable {
			p.lock.Unlock()
			continue
		}
		dp := dynamicPriority(p.priority)
		better := winner == nil ||
			dp < winnerDP ||
			(dp == winnerDP && p.priority.sched < winner.priority.sched) ||
			(dp == winnerDP && p.priority.sched == winner.priority.sched && p.ctime.Load() < winner.ctime.Load())
		if better {
			if winner != nil {
				winner.lock.Unlock()
			}
			winner, winnerDP = p, dp
		} else {
			p.lock.Unlock()
		}
	}
	if winner == nil {
		return false
	}
	winner.priority.winRun, winner.priority.winSleep = 0, 0
	winner.priority.sched++
	k.dispatch(cpu, winner)
	return true
}

// OnTick implements Scheduler: PBS never preempts on a timer tick
// (spec.md §4.7, "FCFS and PBS: never yield on a tick"). When
// set_priority raises a process's urgency, Kernel.SetPriority reports it
// through its shouldYield result but does not itself yield the CPU; a
// PBS process gives up the CPU only by sleeping, yielding or exiting.
// Letting a process keep running here lets winRun/winSleep accumulate a
// real burst for dynamicPriority to measure.
func (s pbsScheduler) OnTick(k *Kernel, p *Process) bool { return false }

// Name implements Scheduler.
func (s pbsScheduler) Name() config.Discipline { return config.PBS }
