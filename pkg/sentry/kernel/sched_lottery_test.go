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

package kernel_test

import (
	"testing"
	"time"

	"github.com/talonforge/rvsentry/config"
	"github.com/talonforge/rvsentry/pkg/sentry/kernel"
)

// TestLotterySchedulingIsTicketWeighted is the statistical fairness
// check of spec.md §8: over many scheduling rounds, a process holding 9
// tickets should be dispatched roughly 9 times as often as one holding 1.
func TestLotterySchedulingIsTicketWeighted(t *testing.T) {
	cfg := testConfig(config.Lottery)
	cfg.NCPU = 1 // one winner drawn at a time, no cross-hart interleaving to untangle
	k, stop := bootTestKernel(t, cfg)
	defer stop()

	busy := func(tickets int) kernel.Workload {
		return func(task *kernel.Task) int {
			if err := task.SetTickets(tickets); err != nil {
				return -1
			}
			for !task.Process().Killed() {
				task.Yield()
			}
			return 0
		}
	}

	var heavyPID, lightPID int
	ready := make(chan struct{})
	k.UserInit(func(task *kernel.Task) int {
		heavyPID = task.Fork(busy(9))
		lightPID = task.Fork(busy(1))
		close(ready)
		return idleInit(task)
	})

	select {
	case <-ready:
	case <-time.After(testTimeout):
		t.Fatal("timed out forking the two lottery children")
	}

	time.Sleep(300 * time.Millisecond)

	k.Kill(heavyPID)
	k.Kill(lightPID)

	// Give both children a moment to observe Killed() and exit.
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		rows := k.Procdump()
		heavyDone, lightDone := true, true
		for _, r := range rows {
			if r.PID == heavyPID && r.State != kernel.Zombie {
				heavyDone = false
			}
			if r.PID == lightPID && r.State != kernel.Zombie {
				lightDone = false
			}
		}
		if heavyDone && lightDone {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	var heavyCount, lightCount uint64
	for _, r := range k.Procdump() {
		switch r.PID {
		case heavyPID:
			heavyCount = r.SchedCount
		case lightPID:
			lightCount = r.SchedCount
		}
	}

	if lightCount == 0 || heavyCount == 0 {
		t.Fatalf("sched counts = heavy:%d light:%d, want both nonzero", heavyCount, lightCount)
	}
	ratio := float64(heavyCount) / float64(lightCount)
	// Expected ratio is 9; allow a wide band since the draw is random
	// and the sample size is bounded by wall-clock time, not iterations.
	if ratio < 3 || ratio > 20 {
		t.Fatalf("heavy/light sched count ratio = %.2f (heavy:%d light:%d), want roughly 9 (between 3 and 20)", ratio, heavyCount, lightCount)
	}
}
