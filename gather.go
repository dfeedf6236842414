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

// Gather returns a batch whose row i is row indices[i] of rec. A negative or
// null index produces a row of nulls.
func Gather(mem memory.Allocator, rec arrow.Record, indices arrow.Array) (arrow.Record, error) {
	rows, err := readIndex(indices)
	if err != nil {
		return nil, err
	}
	n := int(rec.NumRows())
	for i, row := range rows {
		if row >= n {
			return nil, errors.Wrapf(ErrInvalidIndex, "entry %d refers to row %d of %d", i, row, n)
		}
	}
	return Guard(func() (arrow.Record, error) {
		return gather(mem, rec, rows)
	})
}

// Fails on the first column the engine cannot gather.
func checkKinds(schema *arrow.Schema) error {
	for _, f := range schema.Fields() {
		if _, err := KindOf(f.Type); err != nil {
			return columnError(err, f.Name, "", f.Type)
		}
	}
	return nil
}

func gather(mem memory.Allocator, rec arrow.Record, rows []int) (arrow.Record, error) {
	schema := rec.Schema()
	if err := checkKinds(schema); err != nil {
		return nil, err
	}
	cols := make([]arrow.Array, 0, rec.NumCols())
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	fields := make([]arrow.Field, 0, rec.NumCols())
	for i, col := range rec.Columns() {
		out, err := gatherColumn(mem, col, rows)
		if err != nil {
			return nil, columnError(err, schema.Field(i).Name, "", col.DataType())
		}
		cols = append(cols, out)
		f := schema.Field(i)
		f.Nullable = f.Nullable || out.NullN() > 0
		fields = append(fields, f)
	}
	md := withoutKey(schema.Metadata(), SortMetadataKey)
	result := array.NewRecord(arrow.NewSchema(fields, &md), cols, int64(len(rows)))
	return result, nil
}

type valueArray[T any] interface {
	arrow.Array
	Value(i int) T
}

type valueBuilder[T any] interface {
	array.Builder
	Append(v T)
}

func gatherValues[T any](src valueArray[T], b valueBuilder[T], rows []int) arrow.Array {
	defer b.Release()
	b.Reserve(len(rows))
	for _, row := range rows {
		if row < 0 || src.IsNull(row) {
			b.AppendNull()
			continue
		}
		b.Append(src.Value(row))
	}
	return b.NewArray()
}

func gatherColumn(mem memory.Allocator, arr arrow.Array, rows []int) (arrow.Array, error) {
	switch a := arr.(type) {
	case *array.Int8:
		return gatherValues[int8](a, array.NewInt8Builder(mem), rows), nil
	case *array.Int16:
		return gatherValues[int16](a, array.NewInt16Builder(mem), rows), nil
	case *array.Int32:
		return gatherValues[int32](a, array.NewInt32Builder(mem), rows), nil
	case *array.Int64:
		return gatherValues[int64](a, array.NewInt64Builder(mem), rows), nil
	case *array.Uint8:
		return gatherValues[uint8](a, array.NewUint8Builder(mem), rows), nil
	case *array.Uint16:
		return gatherValues[uint16](a, array.NewUint16Builder(mem), rows), nil
	case *array.Uint32:
		return gatherValues[uint32](a, array.NewUint32Builder(mem), rows), nil
	case *array.Uint64:
		return gatherValues[uint64](a, array.NewUint64Builder(mem), rows), nil
	case *array.Float16:
		return gatherValues[float16.Num](a, array.NewFloat16Builder(mem), rows), nil
	case *array.Float32:
		return gatherValues[float32](a, array.NewFloat32Builder(mem), rows), nil
	case *array.Float64:
		return gatherValues[float64](a, array.NewFloat64Builder(mem), rows), nil
	case *array.String:
		return gatherValues[string](a, array.NewStringBuilder(mem), rows), nil
	case *array.LargeString:
		return gatherValues[string](a, array.NewLargeStringBuilder(mem), rows), nil
	case *array.Dictionary:
		indices, err := gatherColumn(mem, a.Indices(), rows)
		if err != nil {
			return nil, err
		}
		defer indices.Release()
		return array.NewDictionaryArray(a.DataType(), indices, a.Dictionary()), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedType, "%s", arr.DataType())
}
