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

import "gvisor.dev/gvisor/pkg/sync"

// CPU is the per-hart record of spec.md §3: a saved scheduler context (here,
// the goroutine running schedulerLoop), the process currently dispatched on
// this hart, an interrupt-nesting depth, and the interrupt-enable state to
// restore when that depth returns to zero.
type CPU struct {
	// ID identifies this hart, 0..NCPU-1. Hart 0 alone owns the clock
	// interrupt (spec.md §4.7).
	ID int

	mu sync.Mutex

	// current is the Process presently RUNNING on this hart, or nil.
	// Must only be read/written with interrupts disabled (push_off'd).
	current *Process

	// noff is the interrupt-disable nesting depth of push_off/pop_off.
	noff int
	// intena is the interrupts-were-enabled flag saved by the first
	// push_off, restored by the pop_off that returns noff to zero.
	intena bool
	// enabled models whether this hart's interrupts are presently
	// enabled; there is no real hardware interrupt line, but sched()'s
	// precondition that interrupts be disabled is still meaningful as
	// an invariant on this flag.
	enabled bool
}

// NewCPU returns an idle CPU record with interrupts enabled, matching the
// scheduler loop's initial "intr_on()" at the top of every pass.
func NewCPU(id int) *CPU {
	return &CPU{ID: id, enabled: true}
}

// Current returns the Process presently running on c, or nil. Must be
// called with interrupts disabled (see PushOff).
func (c *CPU) Current() *Process {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *CPU) setCurrent(p *Process) {
	c.mu.Lock()
	c.current = p
	c.mu.Unlock()
}

// PushOff disables this hart's interrupts and increments the nesting
// depth, saving the pre-disable enabled state on the first call in a
// nested sequence. Mirrors xv6's push_off().
func (c *CPU) PushOff() {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasEnabled := c.enabled
	c.enabled = false
	if c.noff == 0 {
		c.intena = wasEnabled
	}
	c.noff++
}

// PopOff decrements the nesting depth and, once it reaches zero, restores
// the interrupt-enable state saved by the matching PushOff. Mirrors xv6's
// pop_off().
func (c *CPU) PopOff() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.noff < 1 {
		panic("kernel: PopOff without PushOff")
	}
	c.noff--
	if c.noff == 0 && c.intena {
		c.enabled = true
	}
}

// InterruptsEnabled reports this hart's current interrupt-enable state.
// Mirrors xv6's intr_get().
func (c *CPU) InterruptsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// EnableInterrupts unconditionally enables this hart's interrupts.
// Mirrors xv6's intr_on(), called at the top of every scheduler pass to
// avoid deadlocking out device interrupts.
func (c *CPU) EnableInterrupts() {
	c.mu.Lock()
	c.enabled = true
	c.mu.Unlock()
}

func (c *CPU) noffDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.noff
}

// intenaSnapshot returns the interrupt-enable state saved by the
// outermost PushOff, for sched() to carry across a context switch that
// may resume on a different CPU record.
func (c *CPU) intenaSnapshot() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intena
}

// setIntena restores a previously snapshotted interrupt-enable state
// into this CPU record's pending pop_off.
func (c *CPU) setIntena(v bool) {
	c.mu.Lock()
	c.intena = v
	c.mu.Unlock()
}
