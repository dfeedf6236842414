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
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNullsOrderFirst(t *testing.T) {
	mem := checkedAllocator(t)
	rec := newBatch(t, mem).int64s("a", nil, 1, nil).build()
	defer rec.Release()

	cmp, err := MakeComparer(rec, rec, []string{"a"})
	require.NoError(t, err)
	require.True(t, cmp.Less(0, 1))
	require.False(t, cmp.Greater(0, 1))
	require.True(t, cmp.Greater(1, 0))
	require.False(t, cmp.Less(1, 0))
	// null equals null
	require.False(t, cmp.Less(0, 2))
	require.False(t, cmp.Greater(0, 2))
}

func TestFloatOrdering(t *testing.T) {
	mem := checkedAllocator(t)
	rec := newBatch(t, mem).float64s("f", math.NaN(), 1.5, -2.0, math.NaN()).build()
	defer rec.Release()

	cmp, err := MakeComparer(rec, rec, []string{"f"})
	require.NoError(t, err)
	require.True(t, cmp.Less(2, 1))
	require.True(t, cmp.Less(1, 0))
	require.True(t, cmp.Greater(0, 1))
	require.False(t, cmp.Less(0, 3))
	require.False(t, cmp.Greater(0, 3))
}

func TestFloat16Ordering(t *testing.T) {
	mem := checkedAllocator(t)
	b := array.NewFloat16Builder(mem)
	defer b.Release()
	b.AppendValues([]float16.Num{float16.New(-1.5), float16.New(0.25), float16.New(-0.5)}, nil)
	arr := b.NewArray()
	defer arr.Release()

	// raw bit patterns would order negative values after positive ones
	cmp, err := MakeArrayComparer(arr, arr)
	require.NoError(t, err)
	require.True(t, cmp.Less(0, 1))
	require.True(t, cmp.Less(0, 2))
	require.True(t, cmp.Less(2, 1))
	require.True(t, cmp.Greater(1, 0))
}

func TestStringKinds(t *testing.T) {
	mem := checkedAllocator(t)
	rec := newBatch(t, mem).
		strings("s", "b", "a", nil).
		dictionary("d", "b", "a", nil).
		build()
	defer rec.Release()

	for _, name := range []string{"s", "d"} {
		cmp, err := MakeComparer(rec, rec, []string{name})
		require.NoError(t, err)
		require.True(t, cmp.Less(1, 0), name)
		require.True(t, cmp.Less(2, 1), name)
		require.True(t, cmp.Greater(0, 2), name)
	}
}

func TestMultiKeyComparer(t *testing.T) {
	mem := checkedAllocator(t)
	rec := newBatch(t, mem).
		strings("a", "1", "1", "2").
		int64s("b", 100, 99, 1).
		build()
	defer rec.Release()

	cmp, err := MakeComparer(rec, rec, []string{"a", "b"})
	require.NoError(t, err)
	require.True(t, cmp.Less(1, 0))
	require.True(t, cmp.Greater(0, 1))
	require.True(t, cmp.Less(0, 2))
	require.False(t, cmp.Less(0, 0))
	require.False(t, cmp.Greater(0, 0))
}

func TestComparerAcrossBatches(t *testing.T) {
	mem := checkedAllocator(t)
	left := newBatch(t, mem).int64s("a", 1, 5).build()
	defer left.Release()
	right := newBatch(t, mem).int64s("x", 0).int64s("a", 3).build()
	defer right.Release()

	cmp, err := MakeComparer(left, right, []string{"a"})
	require.NoError(t, err)
	require.True(t, cmp.Less(0, 0))
	require.True(t, cmp.Greater(1, 0))
}

func TestComparerErrors(t *testing.T) {
	mem := checkedAllocator(t)
	left := newBatch(t, mem).int64s("a", 1).bools("flag", true).build()
	defer left.Release()
	right := newBatch(t, mem).strings("a", "1").build()
	defer right.Release()

	_, err := MakeComparer(left, right, nil)
	require.True(t, errors.Is(err, ErrNoKeyColumns))

	_, err = MakeComparer(left, left, []string{"flag"})
	require.True(t, errors.Is(err, ErrUnsupportedType))

	_, err = MakeComparer(left, right, []string{"a"})
	require.True(t, errors.Is(err, ErrIncompatibleType))

	_, err = MakeComparer(left, right, []string{"flag"})
	require.True(t, errors.Is(err, ErrMissingColumn))
	var cerr *ColumnError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, "flag", cerr.Column)
	require.Equal(t, "right", cerr.Side)
}
