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

import "testing"

func TestDynamicPriorityClamping(t *testing.T) {
	tests := []struct {
		name string
		ps   priorityState
		want int
	}{
		{
			name: "no window data defaults to neutral niceness",
			ps:   priorityState{priority: 60},
			want: 60, // dp = 60 - 5 + 5
		},
		{
			name: "all running raises dp toward less urgent",
			ps:   priorityState{priority: 60, winRun: 10, winSleep: 0},
			want: 65, // niceness = 0, dp = 60 - 0 + 5
		},
		{
			name: "all sleeping lowers dp toward more urgent",
			ps:   priorityState{priority: 60, winRun: 0, winSleep: 10},
			want: 55, // niceness = 10, dp = 60 - 10 + 5
		},
		{
			name: "clamped at zero",
			ps:   priorityState{priority: 0, winRun: 0, winSleep: 10},
			want: 0, // 0 - 10 + 5 = -5, clamped to 0
		},
		{
			name: "clamped at one hundred",
			ps:   priorityState{priority: 100, winRun: 10, winSleep: 0},
			want: 100, // 100 - 0 + 5 = 105, clamped to 100
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := dynamicPriority(tc.ps); got != tc.want {
				t.Fatalf("dynamicPriority(%+v) = %d, want %d", tc.ps, got, tc.want)
			}
		})
	}
}

// TestPBSOnTickNeverYields covers spec.md §4.7's "FCFS and PBS: never
// yield on a tick": PBS preemption only happens synchronously through
// set_priority, never from the clock.
func TestPBSOnTickNeverYields(t *testing.T) {
	k := &Kernel{}
	s := pbsScheduler{}
	p := &Process{priority: priorityState{priority: 50}}

	for i := 0; i < 100; i++ {
		if yield := s.OnTick(k, p); yield {
			t.Fatalf("OnTick #%d: want false always, PBS never yields on a tick", i)
		}
	}
}

func TestPBSSelectPrefersLowerDynamicPriority(t *testing.T) {
	k := &Kernel{procs: []*Process{
		{pid: 1, state: Runnable, priority: priorityState{priority: 80}, resume: make(chan *CPU), done: make(chan struct{}), reap: make(chan struct{})},
		{pid: 2, state: Runnable, priority: priorityState{priority: 20}, resume: make(chan *CPU), done: make(chan struct{}), reap: make(chan struct{})},
		{pid: 3, state: Sleeping, priority: priorityState{priority: 0}, resume: make(chan *CPU), done: make(chan struct{}), reap: make(chan struct{})},
	}}
	s := pbsScheduler{}
	cpu := NewCPU(0)

	done := make(chan struct{})
	go func() {
		<-k.procs[1].resume
		k.procs[1].done <- struct{}{}
		close(done)
	}()

	if !s.Select(k, cpu) {
		t.Fatalf("Select: want a process dispatched")
	}
	<-done

	if k.procs[1].priority.sched != 1 {
		t.Fatalf("pid 2 (lowest dp) sched count = %d, want 1 (it should have been chosen)", k.procs[1].priority.sched)
	}
	if k.procs[0].priority.sched != 0 {
		t.Fatalf("pid 1 was dispatched, want pid 2 (lower dynamic priority) chosen instead")
	}
}
