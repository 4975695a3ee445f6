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

// ProcSnapshot is one row of a Procdump table (spec.md §6 "Debug
// surface"): a torn, lock-free read of one process-table slot. Fields
// read without p.lock (state, pid, name) may be stale by the time the
// caller prints them; that is the documented contract, not a bug.
type ProcSnapshot struct {
	PID        int
	Name       string
	State      State
	SchedCount uint64
	RunTicks   uint64
	SleepTicks uint64

	// Discipline-specific columns; only the one matching
	// Kernel.Config().Discipline is meaningful.
	Tickets          int
	StaticPriority   int
	DynamicPriority  int
	MLFQLevel        int
}

// Procdump returns a snapshot of every non-Unused process-table slot,
// taking no lock on any Process (spec.md §6: "never takes locks,
// tolerates torn reads"). This is the one place in the package that
// deliberately reads Process fields outside p.lock.
func (k *Kernel) Procdump() []ProcSnapshot {
	discipline := k.sched.Name()
	var rows []ProcSnapshot
	for _, p := range k.procs {
		if p.state == Unused {
			continue
		}
		row := ProcSnapshot{
			PID:        p.pid,
			Name:       p.name,
			State:      p.state,
			SchedCount: p.schedCount.Load(),
			RunTicks:   p.rtime.Load(),
			SleepTicks: p.stime.Load(),
		}
		switch discipline {
		case config.Lottery:
			row.Tickets = p.lottery.tickets
		case config.PBS:
			row.StaticPriority = p.priority.priority
			row.DynamicPriority = dynamicPriority(p.priority)
		case config.MLFQ:
			row.MLFQLevel = p.mlfq.priority
		}
		rows = append(rows, row)
	}
	return rows
}
