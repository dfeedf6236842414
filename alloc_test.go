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
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestLimitedAllocator(t *testing.T) {
	mem := NewLimitedAllocator(memory.NewGoAllocator(), 128)
	b := mem.Allocate(100)
	require.Equal(t, 100, mem.CurrentAlloc())
	require.Panics(t, func() { mem.Allocate(64) })
	require.Equal(t, 100, mem.CurrentAlloc())

	b = mem.Reallocate(120, b)
	require.Equal(t, 120, mem.CurrentAlloc())
	mem.Free(b)
	require.Equal(t, 0, mem.CurrentAlloc())
}

func TestGuarded(t *testing.T) {
	mem := NewLimitedAllocator(memory.NewGoAllocator(), 16)
	rec, err := Guard(func() (arrow.Record, error) {
		mem.Allocate(64)
		return nil, nil
	})
	require.Nil(t, rec)
	require.True(t, errors.Is(err, ErrAllocationFailure))

	require.PanicsWithValue(t, "boom", func() {
		Guard(func() (int, error) { panic("boom") })
	})
}
