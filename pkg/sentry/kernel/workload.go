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

// Workload is the simulated user program a Process runs. It is handed a
// Task bound to the owning Process and Kernel, through which it reaches
// every syscall in spec.md §6's surface. Real user-mode code does not
// exist at this layer (spec.md §1: syscall argument marshalling and exec
// are external collaborators); tests and the CLI instead supply Workload
// closures that call Task methods the way compiled user code would call
// trapped syscalls.
//
// If a Workload returns without calling Task.Exit, its return value is
// used as the implicit exit status.
type Workload func(t *Task) int
