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

	"github.com/talonforge/rvsentry/config"
)

// roundRobinScheduler is the default discipline (spec.md §4.6): it
// dispatches the next Runnable process after the last one it picked,
// wrapping around the table, and preempts every tick.
type roundRobinScheduler struct {
	mu   sync.Mutex
	next int
}

// Select implements Scheduler.
func (s *roundRobinScheduler) Select(k *Kernel, cpu *CPU) bool {
	n := len(k.procs)
	if n == 0 {
		return false
	}
	s.mu.Lock()
	start := s.next
	s.mu.Unlock()

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		p := k.procs[idx]
		p.lock.Lock()
		if p.state != Runnable {
			p.lock.Unlock()
			continue
		}
		s.mu.Lock()
		s.next = (idx + 1) % n
		s.mu.Unlock()
		k.dispatch(cpu, p)
		return true
	}
	return false
}

// OnTick implements Scheduler: round robin always preempts at the next
// tick boundary.
func (s *roundRobinScheduler) OnTick(k *Kernel, p *Process) bool { return true }

// Name implements Scheduler.
func (s *roundRobinScheduler) Name() config.Discipline { return config.RoundRobin }
