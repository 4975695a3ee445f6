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

import "gvisor.dev/gvisor/pkg/errors/linuxerr"

// waitSleep is the wait()-specific form of sleep (spec.md §4.3): the
// caller holds k.waitMu, not p.lock, when it decides to block. It hands
// off from waitMu to p.lock before parking, exactly as
// original_source/kernel/proc.c's sleep(chan, lk) does when lk differs
// from &p->lock, and reacquires waitMu once woken so the caller's loop
// invariant (waitMu held) holds again.
func (t *Task) waitSleep(chanAddr uintptr) {
	t.p.lock.Lock()
	t.k.waitMu.Unlock()
	t.sleep(chanAddr)
	t.k.waitMu.Lock()
}

// WaitResult reports a reaped child's exit status and CPU accounting
// (spec.md §4.3's waitx extension).
type WaitResult struct {
	PID    int
	Status int32
	// RunTicks is the total time the child spent Running.
	RunTicks uint64
	// WaitTicks is the total time the child spent Runnable but not
	// Running, derived as (endtime-ctime) - rtime - stime.
	WaitTicks uint64
}

// Wait blocks until any direct child of the calling Task's process exits,
// reaps it, and returns its pid and exit status (spec.md §4.3). It
// returns linuxerr.ECHILD if the caller has no children at all.
func (t *Task) Wait() (int, int32, error) {
	r, err := t.wait()
	if err != nil {
		return 0, 0, err
	}
	return r.PID, r.Status, nil
}

// Waitx is Wait extended with the reaped child's run/wait tick counts,
// matching original_source/kernel/proc.c's waitx (spec.md §4.3).
func (t *Task) Waitx() (WaitResult, error) {
	return t.wait()
}

func (t *Task) wait() (WaitResult, error) {
	k, p := t.k, t.p
	k.waitMu.Lock()
	for {
		haveKids := false
		var reaped *WaitResult
		k.forEachProc(func(child *Process) {
			if reaped != nil || child == p {
				return
			}
			child.lock.Lock()
			if child.parent == p {
				haveKids = true
				if child.state == Zombie {
					ctime := child.ctime.Load()
					end := child.endtime.Load()
					rt := child.rtime.Load()
					st := child.stime.Load()
					r := WaitResult{
						PID:       child.pid,
						Status:    child.xstate,
						RunTicks:  rt,
						WaitTicks: satSub(satSub(end, ctime), rt+st),
					}
					k.freeproc(child)
					reaped = &r
				}
			}
			child.lock.Unlock()
		})
		if reaped != nil {
			k.waitMu.Unlock()
			return *reaped, nil
		}
		if !haveKids || p.Killed() {
			k.waitMu.Unlock()
			return WaitResult{}, linuxerr.ECHILD
		}
		t.waitSleep(ptrOf(p))
	}
}

// satSub returns a-b saturated at zero, since rtime/stime accounting can
// race a torn read against endtime by at most one tick.
func satSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
