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

package main

import (
	"github.com/sirupsen/logrus"

	"github.com/talonforge/rvsentry/config"
	"github.com/talonforge/rvsentry/pkg/sentry/kernel"
)

// demoInit returns the init workload: it forks a handful of children
// tuned to whatever discipline the kernel was booted with, reaps each
// with Waitx, and logs the run/wait accounting waitx reports (spec.md
// §4.3). It stands in for the shell a real boot would exec as pid 1.
func demoInit(log *logrus.Logger) kernel.Workload {
	return func(t *kernel.Task) int {
		cfg := t.Kernel().Config()
		n := 4
		for i := 0; i < n; i++ {
			i := i
			pid := t.Fork(childWorkload(log, i, cfg))
			if pid < 0 {
				log.Warnf("init: fork %d failed: process table full", i)
				continue
			}
			switch cfg.Discipline {
			case config.Lottery:
				// Tickets must be set from the child's own context
				// (childWorkload does this on its first tick).
			case config.PBS:
				if i == 0 {
					// Demote the first child so its dynamic priority
					// rises and the rest preempt it.
					if _, _, err := t.Kernel().SetPriority(pid, 90); err != nil {
						log.Warnf("init: set_priority(%d): %v", pid, err)
					}
				}
			}
		}

		for i := 0; i < n; i++ {
			r, err := t.Waitx()
			if err != nil {
				log.Warnf("init: waitx: %v", err)
				break
			}
			log.Infof("init: reaped pid=%d status=%d run=%d wait=%d", r.PID, r.Status, r.RunTicks, r.WaitTicks)
		}

		// init never exits (original_source/kernel/proc.c's userinit
		// shell loops forever). With no children left Wait returns
		// ECHILD immediately rather than blocking, so nap between
		// polls instead of spinning the process table scan.
		for {
			if _, _, err := t.Wait(); err != nil {
				t.SleepTicks(50)
			}
		}
	}
}

// childWorkload simulates a small user program: it burns a handful of
// scheduling rounds (yielding through HandleTimerTick the way a trapped
// timer interrupt would), naps once, and arms an alarm that it expects
// to catch exactly once via Sigreturn before exiting.
func childWorkload(log *logrus.Logger, idx int, cfg config.Config) kernel.Workload {
	return func(t *kernel.Task) int {
		if cfg.Discipline == config.Lottery {
			if err := t.SetTickets(1 + idx*2); err != nil {
				log.Warnf("child %d: settickets: %v", idx, err)
			}
		}

		t.Sigalarm(3, 0xdeadbeef)
		caught := false
		for i := 0; i < 20; i++ {
			t.HandleTimerTick()
			if !caught && t.Process().State() == kernel.Running {
				// A real trap handler would check EPC against the
				// handler address; here we just exercise the
				// deliver/Sigreturn round trip once.
				if ok := t.Sigreturn(); ok {
					caught = true
				}
			}
			if t.Process().Killed() {
				log.Infof("child %d: observed kill, exiting early", idx)
				return -1
			}
		}
		t.SleepTicks(2)
		return idx
	}
}
