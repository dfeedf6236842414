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
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
)

// Takes the left value of each row, or the right value where the left is
// null.
func coalesce[T any](left, right valueArray[T], b valueBuilder[T]) arrow.Array {
	defer b.Release()
	b.Reserve(left.Len())
	for i := 0; i < left.Len(); i++ {
		switch {
		case !left.IsNull(i):
			b.Append(left.Value(i))
		case !right.IsNull(i):
			b.Append(right.Value(i))
		default:
			b.AppendNull()
		}
	}
	return b.NewArray()
}

// Dictionaries of the two sides differ, so the unified column is encoded
// against a fresh dictionary.
func coalesceDictionary(mem memory.Allocator, dt *arrow.DictionaryType, left, right arrow.Array) (arrow.Array, error) {
	lview, err := NewStringView(left)
	if err != nil {
		return nil, err
	}
	rview, err := NewStringView(right)
	if err != nil {
		return nil, err
	}
	b, ok := array.NewDictionaryBuilder(mem, dt).(*array.BinaryDictionaryBuilder)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedType, "%s", dt)
	}
	defer b.Release()
	for i := 0; i < lview.Len(); i++ {
		switch {
		case !lview.IsNull(i):
			err = b.AppendString(lview.Value(i))
		case !rview.IsNull(i):
			err = b.AppendString(rview.Value(i))
		default:
			b.AppendNull()
		}
		if err != nil {
			return nil, errors.Wrapf(ErrUnsupportedType, "%s: %s", dt, err)
		}
	}
	return b.NewArray(), nil
}

func unifyColumn(mem memory.Allocator, left, right arrow.Array) (arrow.Array, error) {
	if !arrow.TypeEqual(left.DataType(), right.DataType()) {
		return nil, errors.Wrapf(ErrIncompatibleType, "%s vs %s", left.DataType(), right.DataType())
	}
	switch l := left.(type) {
	case *array.Int8:
		return coalesce[int8](l, right.(*array.Int8), array.NewInt8Builder(mem)), nil
	case *array.Int16:
		return coalesce[int16](l, right.(*array.Int16), array.NewInt16Builder(mem)), nil
	case *array.Int32:
		return coalesce[int32](l, right.(*array.Int32), array.NewInt32Builder(mem)), nil
	case *array.Int64:
		return coalesce[int64](l, right.(*array.Int64), array.NewInt64Builder(mem)), nil
	case *array.Uint8:
		return coalesce[uint8](l, right.(*array.Uint8), array.NewUint8Builder(mem)), nil
	case *array.Uint16:
		return coalesce[uint16](l, right.(*array.Uint16), array.NewUint16Builder(mem)), nil
	case *array.Uint32:
		return coalesce[uint32](l, right.(*array.Uint32), array.NewUint32Builder(mem)), nil
	case *array.Uint64:
		return coalesce[uint64](l, right.(*array.Uint64), array.NewUint64Builder(mem)), nil
	case *array.Float16:
		return coalesce[float16.Num](l, right.(*array.Float16), array.NewFloat16Builder(mem)), nil
	case *array.Float32:
		return coalesce[float32](l, right.(*array.Float32), array.NewFloat32Builder(mem)), nil
	case *array.Float64:
		return coalesce[float64](l, right.(*array.Float64), array.NewFloat64Builder(mem)), nil
	case *array.String:
		return coalesce[string](l, right.(*array.String), array.NewStringBuilder(mem)), nil
	case *array.LargeString:
		return coalesce[string](l, right.(*array.LargeString), array.NewLargeStringBuilder(mem)), nil
	case *array.Dictionary:
		return coalesceDictionary(mem, l.DataType().(*arrow.DictionaryType), l, right)
	}
	return nil, errors.Wrapf(ErrUnsupportedType, "%s", left.DataType())
}
