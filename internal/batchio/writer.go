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

package batchio

import (
	"io"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"

	"marrow"
)

// Returns the ipc option for the named compression codec.
func compressionOption(name string) (ipc.Option, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "lz4":
		return ipc.WithLZ4(), nil
	case "zstd":
		return ipc.WithZstd(), nil
	}
	return nil, errors.Errorf("unknown compression '%s', 'none', 'lz4' or 'zstd'", name)
}

// Write stores rec in the named file, in the format picked by its extension.
// Compression applies to Arrow IPC output only.
func Write(mem memory.Allocator, fname string, rec arrow.Record, compression string) (err error) {
	format := FormatOf(fname)
	if format != IPCFile && format != IPCStream && format != CSV {
		return errors.Errorf("cannot write '%s', use .arrow, .arrows or .csv", fname)
	}
	copt, err := compressionOption(compression)
	if err != nil {
		return err
	}
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	switch format {
	case IPCFile, IPCStream:
		_, err = marrow.Guard(func() (struct{}, error) {
			return struct{}{}, writeIPC(mem, f, rec, format, copt)
		})
	case CSV:
		err = WriteCSV(mem, f, rec)
	}
	return errors.Wrapf(err, "error writing '%s'", fname)
}

func writeIPC(mem memory.Allocator, w io.Writer, rec arrow.Record, format Format, copt ipc.Option) error {
	opts := []ipc.Option{ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem)}
	if copt != nil {
		opts = append(opts, copt)
	}
	if format == IPCStream {
		sw := ipc.NewWriter(w, opts...)
		if err := sw.Write(rec); err != nil {
			sw.Close()
			return err
		}
		return sw.Close()
	}
	fw, err := ipc.NewFileWriter(w, opts...)
	if err != nil {
		return err
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}

// WriteCSV writes rec with a header row. Dictionary columns are written as
// their string values and nulls as empty fields.
func WriteCSV(mem memory.Allocator, w io.Writer, rec arrow.Record) error {
	_, err := marrow.Guard(func() (struct{}, error) {
		return struct{}{}, writeCSV(mem, w, rec)
	})
	return err
}

func writeCSV(mem memory.Allocator, w io.Writer, rec arrow.Record) error {
	plain, err := decodeDictionaries(mem, rec)
	if err != nil {
		return err
	}
	defer plain.Release()
	cw := csv.NewWriter(w, plain.Schema(), csv.WithHeader(true), csv.WithNullWriter(""))
	if err := cw.Write(plain); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// Returns rec with dictionary columns replaced by plain utf8 columns.
func decodeDictionaries(mem memory.Allocator, rec arrow.Record) (arrow.Record, error) {
	fields := append([]arrow.Field{}, rec.Schema().Fields()...)
	cols := make([]arrow.Array, len(fields))
	for i, col := range rec.Columns() {
		if col.DataType().ID() != arrow.DICTIONARY {
			col.Retain()
			cols[i] = col
			continue
		}
		view, err := marrow.NewStringView(col)
		if err != nil {
			for _, c := range cols[:i] {
				c.Release()
			}
			return nil, err
		}
		b := array.NewStringBuilder(mem)
		for row := 0; row < view.Len(); row++ {
			if view.IsNull(row) {
				b.AppendNull()
				continue
			}
			b.Append(view.Value(row))
		}
		cols[i] = b.NewArray()
		b.Release()
		fields[i].Type = arrow.BinaryTypes.String
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	md := rec.Schema().Metadata()
	return array.NewRecord(arrow.NewSchema(fields, &md), cols, rec.NumRows()), nil
}

var typeNames = map[string]arrow.DataType{
	"int8":       arrow.PrimitiveTypes.Int8,
	"int16":      arrow.PrimitiveTypes.Int16,
	"int32":      arrow.PrimitiveTypes.Int32,
	"int64":      arrow.PrimitiveTypes.Int64,
	"uint8":      arrow.PrimitiveTypes.Uint8,
	"uint16":     arrow.PrimitiveTypes.Uint16,
	"uint32":     arrow.PrimitiveTypes.Uint32,
	"uint64":     arrow.PrimitiveTypes.Uint64,
	"float16":    arrow.FixedWidthTypes.Float16,
	"float32":    arrow.PrimitiveTypes.Float32,
	"float64":    arrow.PrimitiveTypes.Float64,
	"utf8":       arrow.BinaryTypes.String,
	"string":     arrow.BinaryTypes.String,
	"large_utf8": arrow.BinaryTypes.LargeString,
}

// ParseTypes parses "name=type" column type overrides for CSV input.
func ParseTypes(pairs []string) (map[string]arrow.DataType, error) {
	result := map[string]arrow.DataType{}
	for _, pair := range pairs {
		name, typeName, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, errors.Errorf("bad column type '%s', expected name=type", pair)
		}
		dt, ok := typeNames[strings.ToLower(typeName)]
		if !ok {
			return nil, errors.Errorf("unknown column type '%s'", typeName)
		}
		result[name] = dt
	}
	return result, nil
}
