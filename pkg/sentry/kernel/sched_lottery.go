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

// lcgModulus and lcgMultiplier are the Park-Miller minimal-standard
// generator's constants (spec.md §4.6: "x <- (16807*x) mod (2^31-1)").
const (
	lcgMultiplier = 16807
	lcgModulus    = 2147483647 // 2^31 - 1
)

// nextRandom draws the next Park-Miller value from k's shared generator,
// seeded to 1 at boot (spec.md §4.6).
func (k *Kernel) nextRandom() uint64 {
	k.rngMu.Lock()
	defer k.rngMu.Unlock()
	k.rng = (lcgMultiplier * k.rng) % lcgModulus
	return k.rng
}

// lotteryScheduler holds a lottery among Runnable processes weighted by
// ticket count (spec.md §4.6's LBS discipline).
type lotteryScheduler struct{}

// Select implements Scheduler in two unlocked-between passes: the first
// totals tickets held by currently Runnable processes, the second walks
// the same order consuming the drawn ticket until it lands on a winner.
// A process that stops being Runnable between passes is simply skipped;
// if that empties the draw, Select reports no work this round rather
// than retrying, since the next scheduler pass will try again.
func (s *lotteryScheduler) Select(k *Kernel, cpu *CPU) bool {
	total := 0
	for _, p := range k.procs {
		p.lock.Lock()
		if p.state == Runnable {
			total += p.lottery.tickets
		}
		p.lock.Unlock()
	}
	if total == 0 {
		return false
	}
	draw := int(k.nextRandom() % uint64(total))

	running := 0
	for _, p := range k.procs {
		p.lock.Lock()
		if p.state != Runnable {
			p.lock.Unlock()
			continue
		}
		running += p.lottery.tickets
		if running > draw {
			k.dispatch(cpu, p)
			return true
		}
		p.lock.Unlock()
	}
	return false
}

// OnTick implements Scheduler: each tick re-draws, so a single winning
// ticket only guarantees one tick of CPU time.
func (s *lotteryScheduler) OnTick(k *Kernel, p *Process) bool { return true }

// Name implements Scheduler.
func (s *lotteryScheduler) Name() config.Discipline { return config.Lottery }
