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

func TestFCFSNeverPreemptsOnTick(t *testing.T) {
	s := fcfsScheduler{}
	if s.OnTick(nil, nil) {
		t.Fatalf("OnTick: want false, FCFS never preempts on a timer tick")
	}
}

func TestFCFSSelectsEarliestCreated(t *testing.T) {
	newProc := func(pid int, ctime uint64) *Process {
		p := &Process{pid: pid, state: Runnable, resume: make(chan *CPU), done: make(chan struct{}), reap: make(chan struct{})}
		p.ctime.Store(ctime)
		return p
	}
	later := newProc(1, 100)
	earlier := newProc(2, 50)
	asleep := newProc(3, 10)
	asleep.state = Sleeping

	k := &Kernel{procs: []*Process{later, earlier, asleep}}
	s := fcfsScheduler{}
	cpu := NewCPU(0)

	done := make(chan struct{})
	go func() {
		<-earlier.resume
		earlier.done <- struct{}{}
		close(done)
	}()

	if !s.Select(k, cpu) {
		t.Fatalf("Select: want a process dispatched")
	}
	<-done

	if earlier.schedCount.Load() != 1 {
		t.Fatalf("earliest-created process was not the one dispatched")
	}
	if later.schedCount.Load() != 0 {
		t.Fatalf("later-created process was dispatched instead of the earlier one")
	}
}
