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
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"
)

func makeIndent(indent int) string {
	return strings.Repeat(" ", indent)
}

// Returns the Go value of row i of the column, or nil for a null.
func cellValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Int8:
		return a.Value(i)
	case *array.Int16:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return a.Value(i)
	case *array.Uint16:
		return a.Value(i)
	case *array.Uint32:
		return a.Value(i)
	case *array.Uint64:
		return a.Value(i)
	case *array.Float16:
		return floatValue(float64(a.Value(i).Float32()))
	case *array.Float32:
		return floatValue(float64(a.Value(i)))
	case *array.Float64:
		return floatValue(a.Value(i))
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Dictionary:
		view, err := NewStringView(a)
		if err != nil || view.IsNull(i) {
			return nil
		}
		return view.Value(i)
	}
	return arr.ValueStr(i)
}

// JSON has no encoding for NaN or the infinities.
func floatValue(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}

// Returns a "showable" string for the given value.
func displayString(v any) string {
	switch vv := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("\"%s\"", vv)
	}
	return fmt.Sprintf("%v", v)
}

// Signature returns the "name:type" strings of the columns of rec.
func Signature(rec arrow.Record) []string {
	result := make([]string, rec.NumCols())
	for i, f := range rec.Schema().Fields() {
		result[i] = fmt.Sprintf("%s:%s", f.Name, f.Type)
	}
	return result
}

// RowStrings returns the showable strings of row rnum of rec.
func RowStrings(rec arrow.Record, rnum int) []string {
	result := make([]string, rec.NumCols())
	for i, col := range rec.Columns() {
		result[i] = displayString(cellValue(col, rnum))
	}
	return result
}

// ShowRecord prints the signature of rec followed by its rows.
func ShowRecord(w io.Writer, rec arrow.Record) {
	fmt.Fprintf(w, "// %s\n", strings.Join(Signature(rec), ", "))
	if keys := SortKeys(rec); keys != nil {
		fmt.Fprintf(w, "// sorted by %s\n", strings.Join(keys, ", "))
	}
	for rnum := 0; rnum < int(rec.NumRows()); rnum++ {
		if rnum > 0 {
			fmt.Fprintln(w, ";")
		}
		fmt.Fprint(w, strings.Join(RowStrings(rec, rnum), ", "))
	}
	fmt.Fprintln(w)
}

type jsonRecord struct {
	Columns  []string `json:"columns"`
	Types    []string `json:"types"`
	SortKeys []string `json:"sort_keys,omitempty"`
	Rows     [][]any  `json:"rows"`
}

// WriteJSON encodes rec as a JSON object of column names, column types and
// row arrays.
func WriteJSON(w io.Writer, rec arrow.Record, indent int) error {
	item := jsonRecord{
		Columns:  make([]string, rec.NumCols()),
		Types:    make([]string, rec.NumCols()),
		SortKeys: SortKeys(rec),
		Rows:     make([][]any, rec.NumRows()),
	}
	for i, f := range rec.Schema().Fields() {
		item.Columns[i] = f.Name
		item.Types[i] = f.Type.String()
	}
	for rnum := range item.Rows {
		row := make([]any, rec.NumCols())
		for i, col := range rec.Columns() {
			row[i] = cellValue(col, rnum)
		}
		item.Rows[rnum] = row
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", makeIndent(indent))
	return enc.Encode(item)
}
