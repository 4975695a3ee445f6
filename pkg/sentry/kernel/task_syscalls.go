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
	"gvisor.dev/gvisor/pkg/errors/linuxerr"

	"github.com/talonforge/rvsentry/config"
)

// GetPID returns the calling Task's process ID (spec.md §6 "getpid").
func (t *Task) GetPID() int { return t.p.pid }

// Exit ends the calling process with the given status (spec.md §6
// "exit"). It never returns.
func (t *Task) Exit(status int32) {
	t.k.exit(t, status)
}

// Kill implements the kill() syscall of spec.md §6, targeting another
// process by pid.
func (t *Task) Kill(pid int) bool { return t.k.kill(pid) }

// Trace enables strace-style syscall tracing for the bits set in mask on
// the calling process (spec.md §6 "trace").
func (t *Task) Trace(mask uint64) {
	p := t.p
	p.lock.Lock()
	p.straceMaskBits |= mask
	p.lock.Unlock()
}

// Traced reports whether syscall bit is enabled for tracing.
func (t *Task) Traced(bit uint) bool {
	p := t.p
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.straceMaskBits&(1<<bit) != 0
}

// SetTickets sets the calling process's lottery ticket count (spec.md
// §4.6's Lottery discipline, "settickets"). Returns linuxerr.EINVAL if
// the active discipline isn't Lottery or n is not positive (spec.md §6).
func (t *Task) SetTickets(n int) error {
	if t.k.cfg.Discipline != config.Lottery {
		return linuxerr.EINVAL
	}
	if n < 1 {
		return linuxerr.EINVAL
	}
	p := t.p
	p.lock.Lock()
	p.lottery.tickets = n
	p.lock.Unlock()
	return nil
}

// SetPriority sets pid's static PBS priority, resets its niceness to the
// neutral value, and reports the previous priority (spec.md §4.6's PBS
// discipline, "set_priority"). If the new priority is numerically lower
// (higher urgency) than the old one, the caller should yield — the
// boolean result reports that. Returns linuxerr.EINVAL if the active
// discipline isn't PBS (spec.md §6).
func (k *Kernel) SetPriority(pid, priority int) (old int, shouldYield bool, err error) {
	if k.cfg.Discipline != config.PBS {
		return 0, false, linuxerr.EINVAL
	}
	if priority < 0 || priority > 100 {
		return 0, false, linuxerr.EINVAL
	}
	found := false
	k.forEachProc(func(p *Process) {
		p.lock.Lock()
		if p.pid == pid && p.state != Unused {
			old = p.priority.priority
			p.priority.priority = priority
			p.priority.niceness = 5
			p.priority.winRun, p.priority.winSleep = 0, 0
			shouldYield = priority < old
			found = true
		}
		p.lock.Unlock()
	})
	if !found {
		return 0, false, linuxerr.ESRCH
	}
	return old, shouldYield, nil
}
