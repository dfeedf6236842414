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
	"github.com/stretchr/testify/require"
)

// Builds test batches column by column. Null values are given as nil.
type batchMaker struct {
	t      *testing.T
	mem    memory.Allocator
	fields []arrow.Field
	cols   []arrow.Array
	md     *arrow.Metadata
}

func newBatch(t *testing.T, mem memory.Allocator) *batchMaker {
	return &batchMaker{t: t, mem: mem}
}

func (m *batchMaker) add(name string, arr arrow.Array) *batchMaker {
	m.fields = append(m.fields, arrow.Field{Name: name, Type: arr.DataType(), Nullable: arr.NullN() > 0})
	m.cols = append(m.cols, arr)
	return m
}

func validity[T any](values []any) ([]T, []bool) {
	result := make([]T, len(values))
	valid := make([]bool, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		result[i] = v.(T)
		valid[i] = true
	}
	return result, valid
}

func (m *batchMaker) int64s(name string, values ...any) *batchMaker {
	b := array.NewInt64Builder(m.mem)
	defer b.Release()
	vals := make([]any, len(values))
	for i, v := range values {
		if v != nil {
			vals[i] = int64(v.(int))
		}
	}
	data, valid := validity[int64](vals)
	b.AppendValues(data, valid)
	return m.add(name, b.NewArray())
}

func (m *batchMaker) float64s(name string, values ...any) *batchMaker {
	b := array.NewFloat64Builder(m.mem)
	defer b.Release()
	data, valid := validity[float64](values)
	b.AppendValues(data, valid)
	return m.add(name, b.NewArray())
}

func (m *batchMaker) strings(name string, values ...any) *batchMaker {
	b := array.NewStringBuilder(m.mem)
	defer b.Release()
	data, valid := validity[string](values)
	b.AppendValues(data, valid)
	return m.add(name, b.NewArray())
}

func (m *batchMaker) dictionary(name string, values ...any) *batchMaker {
	dt := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int16, ValueType: arrow.BinaryTypes.String}
	b := array.NewDictionaryBuilder(m.mem, dt).(*array.BinaryDictionaryBuilder)
	defer b.Release()
	for _, v := range values {
		if v == nil {
			b.AppendNull()
			continue
		}
		require.NoError(m.t, b.AppendString(v.(string)))
	}
	return m.add(name, b.NewArray())
}

func (m *batchMaker) bools(name string, values ...bool) *batchMaker {
	b := array.NewBooleanBuilder(m.mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return m.add(name, b.NewArray())
}

func (m *batchMaker) sortedBy(on ...string) *batchMaker {
	md := withSortKeys(arrow.Metadata{}, on)
	m.md = &md
	return m
}

func (m *batchMaker) build() arrow.Record {
	require.NotEmpty(m.t, m.cols)
	rec := array.NewRecord(arrow.NewSchema(m.fields, m.md), m.cols, int64(m.cols[0].Len()))
	for _, c := range m.cols {
		c.Release()
	}
	return rec
}

func newInt8s(mem memory.Allocator, values ...int8) arrow.Array {
	b := array.NewInt8Builder(mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray()
}

// Returns the values of the named column with nulls as nil. Integers are
// widened to int so expectations read naturally.
func columnValues(t *testing.T, rec arrow.Record, name string) []any {
	i := fieldIndex(rec, name)
	require.GreaterOrEqual(t, i, 0, "column %s", name)
	col := rec.Column(i)
	result := make([]any, col.Len())
	for row := range result {
		switch v := cellValue(col, row).(type) {
		case int8:
			result[row] = int(v)
		case int16:
			result[row] = int(v)
		case int32:
			result[row] = int(v)
		case int64:
			result[row] = int(v)
		default:
			result[row] = v
		}
	}
	return result
}

func columnNames(rec arrow.Record) []string {
	result := make([]string, rec.NumCols())
	for i, f := range rec.Schema().Fields() {
		result[i] = f.Name
	}
	return result
}

func checkedAllocator(t *testing.T) *memory.CheckedAllocator {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })
	return mem
}
