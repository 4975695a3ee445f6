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
	"sync"
	"testing"
	"time"

	"github.com/talonforge/rvsentry/config"
	"github.com/talonforge/rvsentry/pkg/sentry/fs"
	"github.com/talonforge/rvsentry/pkg/sentry/kernel"
	"github.com/talonforge/rvsentry/pkg/sentry/mm"
)

// testConfig returns a small table sized for fast, deterministic tests.
func testConfig(d config.Discipline) config.Config {
	cfg := config.Default()
	cfg.Discipline = d
	cfg.NPROC = 32
	cfg.NCPU = 2
	return cfg
}

// bootTestKernel starts every hart's scheduler loop and a fast clock
// against a fresh Kernel, returning a teardown func.
func bootTestKernel(t *testing.T, cfg config.Config) (*kernel.Kernel, func()) {
	t.Helper()
	k := kernel.New(cfg, mm.NewFake(), fs.NewFake())

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for _, cpu := range k.CPUs() {
		wg.Add(1)
		go func(cpu *kernel.CPU) {
			defer wg.Done()
			k.SchedulerLoop(cpu, stop)
		}(cpu)
	}

	tickerDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				k.Tick()
			case <-tickerDone:
				return
			}
		}
	}()

	return k, func() {
		close(stop)
		close(tickerDone)
		wg.Wait()
	}
}

// idleInit is an init workload that parks on Wait forever, for tests
// that boot a kernel but drive everything from a Fork'd child instead.
func idleInit(t *kernel.Task) int {
	for {
		if _, _, err := t.Wait(); err != nil {
			t.SleepTicks(50)
		}
	}
}

const testTimeout = 2 * time.Second

// TestForkWaitRoundTrip covers the scenario of spec.md §8: a parent
// forks a child that exits immediately with a fixed status, and the
// parent's wait returns that child's pid and status.
func TestForkWaitRoundTrip(t *testing.T) {
	k, stop := bootTestKernel(t, testConfig(config.RoundRobin))
	defer stop()

	type outcome struct {
		wantPID int
		gotPID  int
		status  int32
		err     error
	}
	results := make(chan outcome, 1)

	k.UserInit(func(task *kernel.Task) int {
		pid := task.Fork(func(*kernel.Task) int { return 7 })
		gotPID, status, err := task.Wait()
		results <- outcome{wantPID: pid, gotPID: gotPID, status: status, err: err}
		return idleInit(task)
	})

	select {
	case o := <-results:
		if o.err != nil {
			t.Fatalf("Wait: %v", o.err)
		}
		if o.gotPID != o.wantPID {
			t.Fatalf("Wait pid = %d, want %d", o.gotPID, o.wantPID)
		}
		if o.status != 7 {
			t.Fatalf("Wait status = %d, want 7", o.status)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for the child to be reaped")
	}
}

// TestReparentingToInit covers spec.md §4.3's reparenting rule: when a
// process with a live child exits, that child is handed to init, which
// goes on to reap it once it exits in turn.
func TestReparentingToInit(t *testing.T) {
	k, stop := bootTestKernel(t, testConfig(config.RoundRobin))
	defer stop()

	reaped := make(chan int32, 2)

	k.UserInit(func(task *kernel.Task) int {
		task.Fork(func(a *kernel.Task) int {
			// B outlives A: A exits immediately, so B must be
			// reparented to init rather than left orphaned.
			a.Fork(func(b *kernel.Task) int {
				b.SleepTicks(5)
				return 2
			})
			return 1
		})

		for i := 0; i < 2; i++ {
			r, err := task.Waitx()
			if err != nil {
				break
			}
			reaped <- r.Status
		}
		return idleInit(task)
	})

	got := map[int32]bool{}
	for i := 0; i < 2; i++ {
		select {
		case status := <-reaped:
			got[status] = true
		case <-time.After(testTimeout):
			t.Fatalf("timed out after reaping %d/2 processes", i)
		}
	}
	if !got[1] {
		t.Fatalf("reaped statuses = %v, missing A's status 1", got)
	}
	if !got[2] {
		t.Fatalf("reaped statuses = %v, missing B's status 2 (reparenting to init failed)", got)
	}
}

// TestKillWakesSleepingChild covers spec.md §8's scenario 3: a process
// parked in a long sleep is killed by another process and exits with
// status -1 without waiting out the sleep.
func TestKillWakesSleepingChild(t *testing.T) {
	k, stop := bootTestKernel(t, testConfig(config.RoundRobin))
	defer stop()

	type outcome struct {
		status int32
		err    error
	}
	results := make(chan outcome, 1)

	k.UserInit(func(task *kernel.Task) int {
		pid := task.Fork(func(child *kernel.Task) int {
			child.SleepTicks(1000)
			return -1
		})
		task.Kernel().Kill(pid)

		_, status, err := task.Wait()
		results <- outcome{status: status, err: err}
		return idleInit(task)
	})

	select {
	case o := <-results:
		if o.err != nil {
			t.Fatalf("Wait: %v", o.err)
		}
		if o.status != -1 {
			t.Fatalf("status = %d, want -1 (killed while sleeping)", o.status)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out: kill did not wake the sleeping child promptly")
	}
}

// TestSetPriorityUnknownPID covers the error path of spec.md §6's
// set_priority: targeting a pid that doesn't exist reports ESRCH.
func TestSetPriorityUnknownPID(t *testing.T) {
	k, stop := bootTestKernel(t, testConfig(config.PBS))
	defer stop()

	if _, _, err := k.SetPriority(99999, 50); err == nil {
		t.Fatalf("SetPriority(unknown pid): want error")
	}
}

// TestSetPriorityWrongDiscipline covers spec.md line 169: set_priority
// reports an error when the booted discipline isn't PBS, even for a pid
// that does exist.
func TestSetPriorityWrongDiscipline(t *testing.T) {
	k, stop := bootTestKernel(t, testConfig(config.RoundRobin))
	defer stop()

	var childPID int
	ready := make(chan struct{})
	k.UserInit(func(task *kernel.Task) int {
		childPID = task.Fork(func(task *kernel.Task) int {
			for !task.Process().Killed() {
				task.Yield()
			}
			return 0
		})
		close(ready)
		return idleInit(task)
	})

	select {
	case <-ready:
	case <-time.After(testTimeout):
		t.Fatal("timed out forking the child")
	}

	if _, _, err := k.SetPriority(childPID, 50); err == nil {
		t.Fatalf("SetPriority under RoundRobin: want error, got nil")
	}
	k.Kill(childPID)
}

// TestSetTicketsWrongDiscipline covers spec.md line 169: settickets
// reports an error when the booted discipline isn't Lottery.
func TestSetTicketsWrongDiscipline(t *testing.T) {
	k, stop := bootTestKernel(t, testConfig(config.RoundRobin))
	defer stop()

	errs := make(chan error, 1)
	k.UserInit(func(task *kernel.Task) int {
		task.Fork(func(task *kernel.Task) int {
			errs <- task.SetTickets(5)
			return 0
		})
		return idleInit(task)
	})

	select {
	case err := <-errs:
		if err == nil {
			t.Fatalf("SetTickets under RoundRobin: want error, got nil")
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for child to call SetTickets")
	}
}
