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

// Package arch provides the architecture-dependent register snapshot used
// across the trampoline boundary, in the spirit of
// pkg/sentry/arch/arch.go's Context64/State: a saved user register set
// captured on kernel entry and restored on return.
package arch

// NumGPRegs is the number of general-purpose registers saved in a
// Trapframe, modeled loosely on RISC-V's integer register file (ra, sp,
// gp, tp, t0-t6, s0-s11, a0-a7).
const NumGPRegs = 32

// Trapframe is the saved user register set captured on kernel entry
// (spec.md glossary: "Trapframe"). EPC is the saved program counter
// ("epc" in original_source/kernel/proc.c); Regs holds the general
// purpose registers, with A0 aliased to Regs[10] (RISC-V's a0) to match
// the source's "p->trapframe->a0" usage in fork and sigreturn.
type Trapframe struct {
	EPC  uint64
	SP   uint64
	Regs [NumGPRegs]uint64
}

// a0Index is RISC-V's register index for a0, the first argument/return
// register.
const a0Index = 10

// A0 returns the saved a0 register (the syscall return value register).
func (tf *Trapframe) A0() uint64 { return tf.Regs[a0Index] }

// SetA0 sets the saved a0 register, used by fork to make the child's
// return value 0 (original_source/kernel/proc.c: "np->trapframe->a0 = 0").
func (tf *Trapframe) SetA0(v uint64) { tf.Regs[a0Index] = v }

// Clone returns a deep copy of tf, used when fork copies the parent's
// saved registers into the child's trapframe.
func (tf *Trapframe) Clone() *Trapframe {
	c := *tf
	return &c
}

// Snapshot copies src into tf verbatim, used by the alarm path (spec.md
// §4.8) to save the pre-handler trapframe into the backup trapframe.
func (tf *Trapframe) Snapshot(src *Trapframe) {
	*tf = *src
}

// Restore copies tf into dst verbatim, used by sigreturn to restore the
// backup trapframe bit-identically (spec.md §8's round-trip property).
func (tf *Trapframe) Restore(dst *Trapframe) {
	*dst = *tf
}
