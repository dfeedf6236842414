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
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Comparer orders row i of a left column against row j of a right column.
// Both predicates are strict; rows that are neither less nor greater are
// equal.
type Comparer interface {
	Less(i, j int) bool
	Greater(i, j int) bool
}

type intComparer[T constraints.Integer] struct {
	left, right []T
}

func (c intComparer[T]) Less(i, j int) bool {
	return c.left[i] < c.right[j]
}

func (c intComparer[T]) Greater(i, j int) bool {
	return c.left[i] > c.right[j]
}

// NaN orders after every number and equal to itself.
type floatComparer[T constraints.Float] struct {
	left, right []T
}

func isNaN[T constraints.Float](v T) bool {
	return v != v
}

func lessFloat[T constraints.Float](a, b T) bool {
	if isNaN(a) {
		return false
	}
	if isNaN(b) {
		return true
	}
	return a < b
}

func (c floatComparer[T]) Less(i, j int) bool {
	return lessFloat(c.left[i], c.right[j])
}

func (c floatComparer[T]) Greater(i, j int) bool {
	return lessFloat(c.right[j], c.left[i])
}

type float16Comparer struct {
	left, right []float16.Num
}

func (c float16Comparer) Less(i, j int) bool {
	return lessFloat(c.left[i].Float32(), c.right[j].Float32())
}

func (c float16Comparer) Greater(i, j int) bool {
	return lessFloat(c.right[j].Float32(), c.left[i].Float32())
}

type stringComparer struct {
	left, right StringView
}

func (c stringComparer) Less(i, j int) bool {
	return c.left.Value(i) < c.right.Value(j)
}

func (c stringComparer) Greater(i, j int) bool {
	return c.left.Value(i) > c.right.Value(j)
}

type nullable interface {
	IsNull(i int) bool
}

// Nulls order before every value and equal to each other.
type nullComparer struct {
	base        Comparer
	left, right nullable
}

func (c nullComparer) Less(i, j int) bool {
	if c.left.IsNull(i) {
		return !c.right.IsNull(j)
	}
	if c.right.IsNull(j) {
		return false
	}
	return c.base.Less(i, j)
}

func (c nullComparer) Greater(i, j int) bool {
	if c.left.IsNull(i) {
		return false
	}
	if c.right.IsNull(j) {
		return true
	}
	return c.base.Greater(i, j)
}

// Lexicographic order over several key columns, first key most significant.
type columnsComparer []Comparer

func (cs columnsComparer) Less(i, j int) bool {
	for _, c := range cs {
		if c.Less(i, j) {
			return true
		}
		if c.Greater(i, j) {
			return false
		}
	}
	return false
}

func (cs columnsComparer) Greater(i, j int) bool {
	for _, c := range cs {
		if c.Greater(i, j) {
			return true
		}
		if c.Less(i, j) {
			return false
		}
	}
	return false
}

// MakeArrayComparer returns a comparer of left rows against right rows. Both
// arrays must have the same data type.
func MakeArrayComparer(left, right arrow.Array) (Comparer, error) {
	if !arrow.TypeEqual(left.DataType(), right.DataType()) {
		return nil, errors.Wrapf(ErrIncompatibleType, "%s vs %s", left.DataType(), right.DataType())
	}
	kind, err := KindOf(left.DataType())
	if err != nil {
		return nil, err
	}
	var lnulls, rnulls nullable = left, right
	var base Comparer
	switch kind {
	case KindInt8:
		base = intComparer[int8]{left.(*array.Int8).Int8Values(), right.(*array.Int8).Int8Values()}
	case KindInt16:
		base = intComparer[int16]{left.(*array.Int16).Int16Values(), right.(*array.Int16).Int16Values()}
	case KindInt32:
		base = intComparer[int32]{left.(*array.Int32).Int32Values(), right.(*array.Int32).Int32Values()}
	case KindInt64:
		base = intComparer[int64]{left.(*array.Int64).Int64Values(), right.(*array.Int64).Int64Values()}
	case KindUint8:
		base = intComparer[uint8]{left.(*array.Uint8).Uint8Values(), right.(*array.Uint8).Uint8Values()}
	case KindUint16:
		base = intComparer[uint16]{left.(*array.Uint16).Uint16Values(), right.(*array.Uint16).Uint16Values()}
	case KindUint32:
		base = intComparer[uint32]{left.(*array.Uint32).Uint32Values(), right.(*array.Uint32).Uint32Values()}
	case KindUint64:
		base = intComparer[uint64]{left.(*array.Uint64).Uint64Values(), right.(*array.Uint64).Uint64Values()}
	case KindFloat16:
		base = float16Comparer{left.(*array.Float16).Values(), right.(*array.Float16).Values()}
	case KindFloat32:
		base = floatComparer[float32]{left.(*array.Float32).Float32Values(), right.(*array.Float32).Float32Values()}
	case KindFloat64:
		base = floatComparer[float64]{left.(*array.Float64).Float64Values(), right.(*array.Float64).Float64Values()}
	case KindString, KindLargeString, KindDictionary:
		lview, err := NewStringView(left)
		if err != nil {
			return nil, err
		}
		rview, err := NewStringView(right)
		if err != nil {
			return nil, err
		}
		base = stringComparer{lview, rview}
		lnulls, rnulls = lview, rview
	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "%s", left.DataType())
	}
	if hasNulls(left) || hasNulls(right) {
		return nullComparer{base: base, left: lnulls, right: rnulls}, nil
	}
	return base, nil
}

func fieldIndex(rec arrow.Record, name string) int {
	indices := rec.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return -1
	}
	return indices[0]
}

// MakeComparer returns a comparer of rows of left against rows of right on
// the given key columns. Pass the same record twice to order a single batch.
func MakeComparer(left, right arrow.Record, on []string) (Comparer, error) {
	if err := checkKeyNames(on); err != nil {
		return nil, err
	}
	lside, rside := "left", "right"
	if left == right {
		lside, rside = "", ""
	}
	result := make(columnsComparer, 0, len(on))
	for _, name := range on {
		li := fieldIndex(left, name)
		if li < 0 {
			return nil, columnError(ErrMissingColumn, name, lside, nil)
		}
		ri := fieldIndex(right, name)
		if ri < 0 {
			return nil, columnError(ErrMissingColumn, name, rside, nil)
		}
		lcol, rcol := left.Column(li), right.Column(ri)
		c, err := MakeArrayComparer(lcol, rcol)
		if err != nil {
			return nil, columnError(err, name, lside, lcol.DataType())
		}
		result = append(result, c)
	}
	if len(result) == 1 {
		return result[0], nil
	}
	return result, nil
}
