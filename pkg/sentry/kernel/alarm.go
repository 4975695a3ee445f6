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

// Sigalarm arms a periodic alarm on the calling process: every ticks
// clock ticks of time spent Running, invoke handler (an opaque user
// address; the core never calls through it itself, it only exposes the
// bookkeeping the trap path needs) on return to user mode (spec.md
// §4.8). ticks == 0 disarms the alarm.
func (t *Task) Sigalarm(ticks int, handler uintptr) {
	p := t.p
	p.lock.Lock()
	p.alarmTicks = ticks
	p.alarmHndlr = handler
	p.timepassed = 0
	p.lock.Unlock()
}

// Sigreturn restores the trapframe saved by the most recent alarm
// delivery, ending the user handler's invocation (spec.md §4.8). It
// returns false if no alarm was in progress.
func (t *Task) Sigreturn() bool {
	p := t.p
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.handling {
		return false
	}
	p.bkupTframe.Restore(p.trapframe)
	p.handling = false
	return true
}

// tickAlarm advances p's alarm accounting by one Running tick and
// reports whether the trap path must now snapshot the trapframe and
// redirect control to the user handler (spec.md §4.8). p.lock must be
// held by the caller.
func tickAlarm(p *Process) bool {
	if p.alarmTicks <= 0 || p.handling {
		return false
	}
	p.timepassed++
	if p.timepassed < p.alarmTicks {
		return false
	}
	p.timepassed = 0
	p.handling = true
	p.bkupTframe.Snapshot(p.trapframe)
	return true
}
