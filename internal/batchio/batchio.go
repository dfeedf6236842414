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

// Package batchio loads record batches from files and writes them back.
package batchio

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/pkg/errors"

	"marrow"
)

type Format int

const (
	Unknown Format = iota
	IPCFile
	IPCStream
	CSV
	Parquet
)

func (f Format) String() string {
	switch f {
	case IPCFile:
		return "arrow"
	case IPCStream:
		return "arrows"
	case CSV:
		return "csv"
	case Parquet:
		return "parquet"
	}
	return "unknown"
}

// FormatOf picks the file format from the file name extension.
func FormatOf(fname string) Format {
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".arrow", ".ipc", ".feather":
		return IPCFile
	case ".arrows":
		return IPCStream
	case ".csv":
		return CSV
	case ".parquet":
		return Parquet
	}
	return Unknown
}

// Read loads the named file as a single record batch. Files holding several
// batches are concatenated. Column types of CSV files are inferred unless
// given in types.
// An allocation past the limit of a marrow.LimitedAllocator fails with
// marrow.ErrAllocationFailure.
func Read(ctx context.Context, mem memory.Allocator, fname string, types map[string]arrow.DataType) (arrow.Record, error) {
	return marrow.Guard(func() (arrow.Record, error) {
		return read(ctx, mem, fname, types)
	})
}

func read(ctx context.Context, mem memory.Allocator, fname string, types map[string]arrow.DataType) (arrow.Record, error) {
	format := FormatOf(fname)
	if format == Unknown {
		return nil, errors.Errorf("unknown file format '%s'", fname)
	}
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var recs []arrow.Record
	var schema *arrow.Schema
	switch format {
	case IPCFile:
		schema, recs, err = readIPCFile(mem, f)
	case IPCStream:
		schema, recs, err = readIPCStream(mem, f)
	case CSV:
		schema, recs, err = readCSV(mem, f, types)
	case Parquet:
		schema, recs, err = readParquet(ctx, mem, f)
	}
	defer release(recs)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading '%s'", fname)
	}
	return concat(mem, schema, recs)
}

func release(recs []arrow.Record) {
	for _, rec := range recs {
		rec.Release()
	}
}

func readIPCFile(mem memory.Allocator, f *os.File) (*arrow.Schema, []arrow.Record, error) {
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	var recs []arrow.Record
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.RecordAt(i)
		if err != nil {
			return nil, recs, err
		}
		recs = append(recs, rec)
	}
	return r.Schema(), recs, nil
}

func readIPCStream(mem memory.Allocator, f *os.File) (*arrow.Schema, []arrow.Record, error) {
	r, err := ipc.NewReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, nil, err
	}
	defer r.Release()
	var recs []arrow.Record
	for r.Next() {
		rec := r.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	return r.Schema(), recs, r.Err()
}

func readCSV(mem memory.Allocator, f *os.File, types map[string]arrow.DataType) (*arrow.Schema, []arrow.Record, error) {
	r := csv.NewInferringReader(f,
		csv.WithAllocator(mem),
		csv.WithHeader(true),
		csv.WithNullReader(true, ""),
		csv.WithColumnTypes(types),
		csv.WithChunk(-1))
	defer r.Release()
	var recs []arrow.Record
	for r.Next() {
		rec := r.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := r.Err(); err != nil {
		return nil, recs, err
	}
	return r.Schema(), recs, nil
}

func readParquet(ctx context.Context, mem memory.Allocator, f *os.File) (*arrow.Schema, []arrow.Record, error) {
	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, nil, err
	}
	defer tbl.Release()
	tr := array.NewTableReader(tbl, -1)
	defer tr.Release()
	var recs []arrow.Record
	for tr.Next() {
		rec := tr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	return tbl.Schema(), recs, nil
}

// Joins the batches into one. The result must be released.
func concat(mem memory.Allocator, schema *arrow.Schema, recs []arrow.Record) (arrow.Record, error) {
	if len(recs) == 1 {
		recs[0].Retain()
		return recs[0], nil
	}
	if schema == nil {
		return nil, errors.New("no schema")
	}
	cols := make([]arrow.Array, 0, schema.NumFields())
	defer func() {
		for _, col := range cols {
			col.Release()
		}
	}()
	var nrows int64
	for _, rec := range recs {
		nrows += rec.NumRows()
	}
	for i, field := range schema.Fields() {
		if len(recs) == 0 {
			b := array.NewBuilder(mem, field.Type)
			cols = append(cols, b.NewArray())
			b.Release()
			continue
		}
		chunks := make([]arrow.Array, len(recs))
		for j, rec := range recs {
			chunks[j] = rec.Column(i)
		}
		col, err := array.Concatenate(chunks, mem)
		if err != nil {
			return nil, errors.Wrapf(err, "error concatenating column '%s'", field.Name)
		}
		cols = append(cols, col)
	}
	return array.NewRecord(schema, cols, nrows), nil
}
