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
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func unsortedBatch(t *testing.T, mem memory.Allocator) arrow.Record {
	return newBatch(t, mem).
		strings("a", "1", "2", "1", "2", "0").
		int64s("b", 100, 150, 99, 200, 1000).
		int64s("c", 2, 3, 1, 4, 0).
		build()
}

func TestSort(t *testing.T) {
	mem := checkedAllocator(t)
	rec := unsortedBatch(t, mem)
	defer rec.Release()

	out, err := Sort(mem, rec, []string{"a", "b"})
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, []any{"0", "1", "1", "2", "2"}, columnValues(t, out, "a"))
	require.Equal(t, []any{1000, 99, 100, 150, 200}, columnValues(t, out, "b"))
	require.Equal(t, []any{0, 1, 2, 3, 4}, columnValues(t, out, "c"))
	md := out.Schema().Metadata()
	i := md.FindKey(SortMetadataKey)
	require.GreaterOrEqual(t, i, 0)
	require.Equal(t, "a,b", md.Values()[i])

	again, err := Sort(mem, out, []string{"a", "b"})
	require.NoError(t, err)
	defer again.Release()
	require.Equal(t, columnValues(t, out, "c"), columnValues(t, again, "c"))

	// a prefix of the recorded keys reuses the order
	prefix, err := Sort(mem, out, []string{"a"})
	require.NoError(t, err)
	defer prefix.Release()
	require.Equal(t, []any{0, 1, 2, 3, 4}, columnValues(t, prefix, "c"))
	require.Equal(t, []string{"a"}, SortKeys(prefix))
}

func TestSortOtherKeys(t *testing.T) {
	mem := checkedAllocator(t)
	rec := newBatch(t, mem).
		int64s("a", 1, 2, 3).
		int64s("b", 30, 10, 20).
		sortedBy("a").
		build()
	defer rec.Release()

	out, err := Sort(mem, rec, []string{"b"})
	require.NoError(t, err)
	defer out.Release()
	require.Equal(t, []any{2, 3, 1}, columnValues(t, out, "a"))
	require.Equal(t, []string{"b"}, SortKeys(out))
}

func TestAddIndex(t *testing.T) {
	mem := checkedAllocator(t)
	rec := unsortedBatch(t, mem)
	defer rec.Release()

	indexed, err := AddIndex(mem, rec, []string{"a", "b"})
	require.NoError(t, err)
	defer indexed.Release()

	require.Equal(t, []string{IndexColumnName, "a", "b", "c"}, columnNames(indexed))
	require.Equal(t, []int8{4, 2, 0, 1, 3}, indexed.Column(0).(*array.Int8).Int8Values())
	require.Equal(t, []string{"a", "b"}, SortKeys(indexed))

	sorted, err := Sort(mem, indexed, []string{"a"})
	require.NoError(t, err)
	defer sorted.Release()
	require.Equal(t, []string{"a", "b", "c"}, columnNames(sorted))
	require.Equal(t, []any{0, 1, 2, 3, 4}, columnValues(t, sorted, "c"))

	// indexing again replaces the index column
	reindexed, err := AddIndex(mem, indexed, []string{"c"})
	require.NoError(t, err)
	defer reindexed.Release()
	require.Equal(t, []string{IndexColumnName, "a", "b", "c"}, columnNames(reindexed))
	require.Equal(t, []int8{4, 2, 0, 1, 3}, reindexed.Column(0).(*array.Int8).Int8Values())
	require.Equal(t, []string{"c"}, SortKeys(reindexed))
}

func TestSortErrors(t *testing.T) {
	mem := checkedAllocator(t)
	rec := newBatch(t, mem).int64s("a", 2, 1).bools("flag", true, false).build()
	defer rec.Release()

	_, err := Sort(mem, rec, []string{"a"})
	require.True(t, errors.Is(err, ErrUnsupportedType))
	_, err = Sort(mem, rec, nil)
	require.True(t, errors.Is(err, ErrNoKeyColumns))
	_, err = Sort(mem, rec, []string{"missing"})
	require.Error(t, err)
}

func TestMerge(t *testing.T) {
	mem := checkedAllocator(t)
	left := newBatch(t, mem).
		int64s("a", 5, 1, 3, 2, 1).
		int64s("b", 51, 11, 31, 21, 12).
		build()
	defer left.Release()
	right := newBatch(t, mem).
		int64s("a", 5, 4, 2, 1, 5).
		int64s("c", 51, 41, 21, 11, 52).
		build()
	defer right.Release()

	indexed, err := AddIndex(mem, right, []string{"a"})
	require.NoError(t, err)
	defer indexed.Release()

	out, err := Merge(mem, left, indexed, []string{"a"}, "outer", "")
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, []string{"a", "b", "c"}, columnNames(out))
	require.Equal(t, []any{1, 1, 2, 3, 4, 5, 5}, columnValues(t, out, "a"))
	require.Equal(t, []any{11, 12, 21, 31, nil, 51, 51}, columnValues(t, out, "b"))
	require.Equal(t, []any{11, 11, 21, nil, 41, 51, 52}, columnValues(t, out, "c"))
	require.Equal(t, []string{"a"}, SortKeys(out))

	_, err = Merge(mem, left, right, []string{"a"}, "cross", "")
	require.True(t, errors.Is(err, ErrUnsupportedJoinKind))
}

func TestMergeAllocationLimit(t *testing.T) {
	values := make([]any, 1000)
	for i := range values {
		values[i] = 1
	}
	rec := newBatch(t, memory.NewGoAllocator()).int64s("a", values...).build()
	defer rec.Release()

	mem := NewLimitedAllocator(memory.NewGoAllocator(), 4096)
	_, err := Merge(mem, rec, rec, []string{"a"}, "inner", "_right")
	require.True(t, errors.Is(err, ErrAllocationFailure))
}

func TestMergeSortedBatches(t *testing.T) {
	mem := checkedAllocator(t)
	left := newBatch(t, mem).
		int64s("a", 1, 1, 2, 3, 5).
		strings("s", "y", "z", "x", "x", "x").
		int64s("b", 11, 12, 21, 31, 51).
		sortedBy("a", "s").
		build()
	defer left.Release()
	right := newBatch(t, mem).
		int64s("a", 1, 2, 4, 5, 5).
		int64s("c", 11, 21, 41, 51, 52).
		sortedBy("a").
		build()
	defer right.Release()

	inner, err := Merge(mem, left, right, []string{"a"}, "inner", "")
	require.NoError(t, err)
	defer inner.Release()
	require.Equal(t, []string{"a", "s", "b", "c"}, columnNames(inner))
	require.Equal(t, []any{1, 1, 2, 5, 5}, columnValues(t, inner, "a"))
	require.Equal(t, []any{11, 12, 21, 51, 51}, columnValues(t, inner, "b"))
	require.Equal(t, []any{11, 11, 21, 51, 52}, columnValues(t, inner, "c"))

	joined, err := Merge(mem, left, right, []string{"a"}, "left", "")
	require.NoError(t, err)
	defer joined.Release()
	require.Equal(t, []any{1, 1, 2, 3, 5, 5}, columnValues(t, joined, "a"))
	require.Equal(t, []any{"y", "z", "x", "x", "x", "x"}, columnValues(t, joined, "s"))
	require.Equal(t, []any{11, 11, 21, nil, 51, 52}, columnValues(t, joined, "c"))
	require.Equal(t, []string{"a"}, SortKeys(joined))
}

func TestKeyNamesWithComma(t *testing.T) {
	mem := checkedAllocator(t)
	rec := newBatch(t, mem).int64s("a,b", 2, 1).build()
	defer rec.Release()

	_, err := Sort(mem, rec, []string{"a,b"})
	require.True(t, errors.Is(err, ErrInvalidKeyName))
	_, err = AddIndex(mem, rec, []string{"a,b"})
	require.True(t, errors.Is(err, ErrInvalidKeyName))
	_, err = Merge(mem, rec, rec, []string{"a,b"}, "inner", "_r")
	require.True(t, errors.Is(err, ErrInvalidKeyName))
}
