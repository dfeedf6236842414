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
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
)

const (
	// Name of the permutation column added by AddIndex.
	IndexColumnName = "__marrow_index"

	// Schema metadata key holding the comma separated key columns a batch is
	// ordered by.
	SortMetadataKey = "__marrow_index"
)

// Returns a copy of md without the given key.
func withoutKey(md arrow.Metadata, key string) arrow.Metadata {
	if md.FindKey(key) < 0 {
		return md
	}
	var keys, values []string
	for i, k := range md.Keys() {
		if k == key {
			continue
		}
		keys = append(keys, k)
		values = append(values, md.Values()[i])
	}
	return arrow.NewMetadata(keys, values)
}

// Sort keys are recorded comma separated, so key names may not hold a comma.
func checkKeyNames(on []string) error {
	if len(on) == 0 {
		return ErrNoKeyColumns
	}
	for _, name := range on {
		if strings.Contains(name, ",") {
			return errors.Wrapf(ErrInvalidKeyName, "'%s' contains ','", name)
		}
	}
	return nil
}

// Returns a copy of md recording the given sort keys.
func withSortKeys(md arrow.Metadata, on []string) arrow.Metadata {
	md = withoutKey(md, SortMetadataKey)
	keys := append(append([]string{}, md.Keys()...), SortMetadataKey)
	values := append(append([]string{}, md.Values()...), strings.Join(on, ","))
	return arrow.NewMetadata(keys, values)
}

// SortKeys returns the key columns rec is recorded as ordered by, or nil.
func SortKeys(rec arrow.Record) []string {
	md := rec.Schema().Metadata()
	i := md.FindKey(SortMetadataKey)
	if i < 0 {
		return nil
	}
	return strings.Split(md.Values()[i], ",")
}

// WithSortKeys returns rec annotated as ordered by the given key columns. The
// columns are shared with rec. Key names must not contain a comma.
func WithSortKeys(rec arrow.Record, on []string) arrow.Record {
	md := withSortKeys(rec.Schema().Metadata(), on)
	schema := arrow.NewSchema(rec.Schema().Fields(), &md)
	return array.NewRecord(schema, rec.Columns(), rec.NumRows())
}

// Answers if a batch ordered by recorded keys is also ordered by on.
func isPrefix(on, recorded []string) bool {
	if len(recorded) < len(on) {
		return false
	}
	for i, name := range on {
		if recorded[i] != name {
			return false
		}
	}
	return true
}

// Returns rec without its index column. The result must be released.
func dropIndexColumn(rec arrow.Record) arrow.Record {
	i := fieldIndex(rec, IndexColumnName)
	if i < 0 {
		rec.Retain()
		return rec
	}
	fields := make([]arrow.Field, 0, rec.NumCols()-1)
	cols := make([]arrow.Array, 0, rec.NumCols()-1)
	for j, col := range rec.Columns() {
		if j == i {
			continue
		}
		fields = append(fields, rec.Schema().Field(j))
		cols = append(cols, col)
	}
	md := rec.Schema().Metadata()
	return array.NewRecord(arrow.NewSchema(fields, &md), cols, rec.NumRows())
}

// Splits rec into its data columns and the permutation ordering them by on.
// A nil index means the data is already in key order. An index recorded for
// the same keys, or for keys that start with them, is reused; otherwise a new
// one is built. Both results must be released.
func resolveIndex(mem memory.Allocator, rec arrow.Record, on []string) (arrow.Record, arrow.Array, error) {
	data := dropIndexColumn(rec)
	if isPrefix(on, SortKeys(rec)) {
		i := fieldIndex(rec, IndexColumnName)
		if i < 0 {
			slog.Debug("batch already sorted", "on", on)
			return data, nil, nil
		}
		index := rec.Column(i)
		index.Retain()
		slog.Debug("reusing index column", "on", on)
		return data, index, nil
	}
	index, err := MakeIndex(mem, data, on)
	if err != nil {
		data.Release()
		return nil, nil, err
	}
	return data, index, nil
}

// AddIndex returns rec with a leading IndexColumnName column holding the
// permutation that orders it by on. Any existing index column is replaced.
func AddIndex(mem memory.Allocator, rec arrow.Record, on []string) (arrow.Record, error) {
	data := dropIndexColumn(rec)
	defer data.Release()
	index, err := MakeIndex(mem, data, on)
	if err != nil {
		return nil, err
	}
	defer index.Release()
	fields := append([]arrow.Field{{Name: IndexColumnName, Type: index.DataType()}}, data.Schema().Fields()...)
	cols := append([]arrow.Array{index}, data.Columns()...)
	md := withSortKeys(data.Schema().Metadata(), on)
	return array.NewRecord(arrow.NewSchema(fields, &md), cols, data.NumRows()), nil
}

// Sort returns rec with its rows in ascending key order. The result never
// carries an index column and is recorded as ordered by on.
func Sort(mem memory.Allocator, rec arrow.Record, on []string) (arrow.Record, error) {
	if err := checkKeyNames(on); err != nil {
		return nil, err
	}
	if err := checkKinds(rec.Schema()); err != nil {
		return nil, err
	}
	data, index, err := resolveIndex(mem, rec, on)
	if err != nil {
		return nil, err
	}
	defer data.Release()
	if index == nil {
		return WithSortKeys(data, on), nil
	}
	defer index.Release()
	rows, err := permutation(index, int(data.NumRows()))
	if err != nil {
		return nil, err
	}
	return Guard(func() (arrow.Record, error) {
		sorted, err := gather(mem, data, rows.rows)
		if err != nil {
			return nil, err
		}
		defer sorted.Release()
		return WithSortKeys(sorted, on), nil
	})
}

// Merge joins left and right on the key columns. how is one of "inner",
// "left" or "outer". Non-key right columns are renamed with rightSuffix.
func Merge(mem memory.Allocator, left, right arrow.Record, on []string, how, rightSuffix string) (arrow.Record, error) {
	kind, err := ParseJoinKind(how)
	if err != nil {
		return nil, err
	}
	if err := checkKeyNames(on); err != nil {
		return nil, err
	}
	ldata, lindex, err := resolveIndex(mem, left, on)
	if err != nil {
		return nil, err
	}
	defer ldata.Release()
	if lindex != nil {
		defer lindex.Release()
	}
	rdata, rindex, err := resolveIndex(mem, right, on)
	if err != nil {
		return nil, err
	}
	defer rdata.Release()
	if rindex != nil {
		defer rindex.Release()
	}
	return Join(mem, ldata, rdata, lindex, rindex, on, kind, rightSuffix)
}
