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

func TestLevelQueueRemovePreservesFIFOOrder(t *testing.T) {
	q := newLevelQueue(8)
	procs := make([]*Process, 5)
	for i := range procs {
		procs[i] = &Process{index: i}
		q.pushBack(procs[i])
	}

	// Removing a middle element must not reorder the remainder (the bug
	// the REDESIGN flag calls out: swap-with-last breaks FIFO order).
	if !q.remove(procs[2]) {
		t.Fatalf("remove(procs[2]) = false, want true")
	}
	want := []*Process{procs[0], procs[1], procs[3], procs[4]}
	for i, w := range want {
		got, ok := q.popFront()
		if !ok {
			t.Fatalf("popFront() #%d: queue empty early", i)
		}
		if got != w {
			t.Fatalf("popFront() #%d = %v, want %v", i, got, w)
		}
	}
	if _, ok := q.popFront(); ok {
		t.Fatalf("popFront() after draining: want empty")
	}
}

func TestLevelQueueRemoveMissingReturnsFalse(t *testing.T) {
	q := newLevelQueue(4)
	p := &Process{index: 0}
	q.pushBack(p)
	if q.remove(&Process{index: 1}) {
		t.Fatalf("remove of absent process returned true")
	}
	if q.len() != 1 {
		t.Fatalf("len() = %d, want 1", q.len())
	}
}

func TestLevelQueueWrapsAroundBuffer(t *testing.T) {
	q := newLevelQueue(3)
	a, b, c, d := &Process{index: 0}, &Process{index: 1}, &Process{index: 2}, &Process{index: 3}
	q.pushBack(a)
	q.pushBack(b)
	q.popFront() // head advances past a, freeing a slot
	q.pushBack(c)
	q.popFront() // head advances past b
	q.pushBack(d)

	got, ok := q.popFront()
	if !ok || got != c {
		t.Fatalf("popFront() = %v, %v, want %v, true", got, ok, c)
	}
	got, ok = q.popFront()
	if !ok || got != d {
		t.Fatalf("popFront() = %v, %v, want %v, true", got, ok, d)
	}
}

func TestMLFQQueuesSnapshotIndependentOfMutation(t *testing.T) {
	m := newMLFQQueues(3, 8)
	p0, p1 := &Process{index: 0}, &Process{index: 1}
	m.push(0, p0)
	m.push(0, p1)

	snap := m.snapshot(0)
	if len(snap) != 2 || snap[0] != p0 || snap[1] != p1 {
		t.Fatalf("snapshot(0) = %v, want [p0 p1]", snap)
	}

	m.remove(0, p0)
	if len(snap) != 2 {
		t.Fatalf("mutating the queue after snapshot changed the snapshot's length")
	}
	if m.len(0) != 1 {
		t.Fatalf("len(0) after remove = %d, want 1", m.len(0))
	}
}
