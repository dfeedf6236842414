// Copyright 2022 RelationalAI, Inc.
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

package marrow

import (
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
)

// LimitedAllocator caps the number of bytes live at any one time. An
// allocation past the limit aborts the running operation, which then fails
// with ErrAllocationFailure.
type LimitedAllocator struct {
	mem   memory.Allocator
	limit int64
	used  atomic.Int64
}

var _ memory.Allocator = (*LimitedAllocator)(nil)

func NewLimitedAllocator(mem memory.Allocator, limit int64) *LimitedAllocator {
	return &LimitedAllocator{mem: mem, limit: limit}
}

type allocationError struct {
	requested int
	used      int64
	limit     int64
}

func (e *allocationError) Error() string {
	return fmt.Sprintf("%d bytes requested with %d of %d in use", e.requested, e.used, e.limit)
}

func (a *LimitedAllocator) reserve(size int) {
	if size <= 0 {
		a.used.Add(int64(size))
		return
	}
	if used := a.used.Add(int64(size)); used > a.limit {
		a.used.Add(-int64(size))
		panic(&allocationError{requested: size, used: used - int64(size), limit: a.limit})
	}
}

func (a *LimitedAllocator) Allocate(size int) []byte {
	a.reserve(size)
	return a.mem.Allocate(size)
}

func (a *LimitedAllocator) Reallocate(size int, b []byte) []byte {
	a.reserve(size - len(b))
	return a.mem.Reallocate(size, b)
}

func (a *LimitedAllocator) Free(b []byte) {
	a.used.Add(-int64(len(b)))
	a.mem.Free(b)
}

// Bytes currently allocated through a.
func (a *LimitedAllocator) CurrentAlloc() int {
	return int(a.used.Load())
}

// Guard runs fn, converting an allocation limit abort into
// ErrAllocationFailure. Any other panic propagates. Code allocating from a
// LimitedAllocator outside this package runs under Guard.
func Guard[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(*allocationError)
		if !ok {
			panic(r)
		}
		var zero T
		result, err = zero, errors.Wrap(ErrAllocationFailure, e.Error())
	}()
	return fn()
}
