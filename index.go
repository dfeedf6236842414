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
	"log/slog"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// MakeIndex returns the permutation that stably orders the rows of rec by the
// given key columns. The index is the narrowest of int8, int16, int32 and
// int64 able to hold every row number.
func MakeIndex(mem memory.Allocator, rec arrow.Record, on []string) (arrow.Array, error) {
	return Guard(func() (arrow.Array, error) {
		rows, err := sortRows(rec, on)
		if err != nil {
			return nil, err
		}
		return newIndexArray(mem, rows), nil
	})
}

func sortRows(rec arrow.Record, on []string) ([]int, error) {
	cmp, err := MakeComparer(rec, rec, on)
	if err != nil {
		return nil, err
	}
	rows := make([]int, rec.NumRows())
	for i := range rows {
		rows[i] = i
	}
	slices.SortStableFunc(rows, func(a, b int) int {
		switch {
		case cmp.Less(a, b):
			return -1
		case cmp.Greater(a, b):
			return 1
		}
		return 0
	})
	slog.Debug("sorted batch", "rows", len(rows), "on", on)
	return rows, nil
}

// Returns the narrowest signed integer type that holds 0..n-1.
func indexType(n int) arrow.DataType {
	switch {
	case n <= math.MaxInt8+1:
		return arrow.PrimitiveTypes.Int8
	case n <= math.MaxInt16+1:
		return arrow.PrimitiveTypes.Int16
	case n <= math.MaxInt32+1:
		return arrow.PrimitiveTypes.Int32
	}
	return arrow.PrimitiveTypes.Int64
}

func narrow[T constraints.Signed](rows []int) []T {
	result := make([]T, len(rows))
	for i, row := range rows {
		result[i] = T(row)
	}
	return result
}

func newIndexArray(mem memory.Allocator, rows []int) arrow.Array {
	switch indexType(len(rows)).ID() {
	case arrow.INT8:
		b := array.NewInt8Builder(mem)
		defer b.Release()
		b.AppendValues(narrow[int8](rows), nil)
		return b.NewArray()
	case arrow.INT16:
		b := array.NewInt16Builder(mem)
		defer b.Release()
		b.AppendValues(narrow[int16](rows), nil)
		return b.NewArray()
	case arrow.INT32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.AppendValues(narrow[int32](rows), nil)
		return b.NewArray()
	}
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(narrow[int64](rows), nil)
	return b.NewArray()
}

func widen[T constraints.Integer](values []T, arr arrow.Array) []int {
	result := make([]int, len(values))
	for i, v := range values {
		if arr.IsNull(i) {
			result[i] = -1
			continue
		}
		result[i] = int(v)
	}
	return result
}

// Reads an integer index array. Null slots read as -1.
func readIndex(arr arrow.Array) ([]int, error) {
	switch a := arr.(type) {
	case *array.Int8:
		return widen(a.Int8Values(), a), nil
	case *array.Int16:
		return widen(a.Int16Values(), a), nil
	case *array.Int32:
		return widen(a.Int32Values(), a), nil
	case *array.Int64:
		return widen(a.Int64Values(), a), nil
	}
	return nil, errors.Wrapf(ErrInvalidIndex, "index must be a signed integer array, not %s", arr.DataType())
}

// rowIndex redirects cursor positions to batch rows. A nil rows slice is the
// identity, used for batches already in key order.
type rowIndex struct {
	rows []int
}

func (x rowIndex) at(i int) int {
	if x.rows == nil {
		return i
	}
	return x.rows[i]
}

// Builds the row index of a permutation over n rows. A nil array yields the
// identity.
func permutation(arr arrow.Array, n int) (rowIndex, error) {
	if arr == nil {
		return rowIndex{}, nil
	}
	if arr.Len() != n {
		return rowIndex{}, errors.Wrapf(ErrInvalidIndex, "index has %d entries for %d rows", arr.Len(), n)
	}
	rows, err := readIndex(arr)
	if err != nil {
		return rowIndex{}, err
	}
	for i, row := range rows {
		if row < 0 || row >= n {
			return rowIndex{}, errors.Wrapf(ErrInvalidIndex, "entry %d refers to row %d of %d", i, row, n)
		}
	}
	return rowIndex{rows: rows}, nil
}
