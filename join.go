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

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	OuterJoin
)

func (k JoinKind) String() string {
	switch k {
	case InnerJoin:
		return "inner"
	case LeftJoin:
		return "left"
	case OuterJoin:
		return "outer"
	}
	return "unknown"
}

// ParseJoinKind maps "inner", "left" or "outer" onto a JoinKind.
func ParseJoinKind(how string) (JoinKind, error) {
	switch how {
	case "inner":
		return InnerJoin, nil
	case "left":
		return LeftJoin, nil
	case "outer":
		return OuterJoin, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedJoinKind, "'%s'", how)
}

// An emitter accumulates the row pairs of a join result in builders drawn
// from the allocator, so a run explosion is bounded by its limit. Unmatched
// sides are recorded as -1.
type emitter interface {
	leftOnly(l int)
	rightOnly(r int)
	both(l, r int)
	finish() (left, right []int, err error)
	release()
}

type innerEmitter struct {
	left, right *array.Int64Builder
}

func (e *innerEmitter) leftOnly(int)  {}
func (e *innerEmitter) rightOnly(int) {}

func (e *innerEmitter) both(l, r int) {
	e.left.Append(int64(l))
	e.right.Append(int64(r))
}

func drain(b *array.Int64Builder) ([]int, error) {
	arr := b.NewArray()
	defer arr.Release()
	return readIndex(arr)
}

func (e *innerEmitter) finish() ([]int, []int, error) {
	left, err := drain(e.left)
	if err != nil {
		return nil, nil, err
	}
	right, err := drain(e.right)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (e *innerEmitter) release() {
	e.left.Release()
	e.right.Release()
}

type leftEmitter struct {
	innerEmitter
}

func (e *leftEmitter) leftOnly(l int) {
	e.both(l, -1)
}

type outerEmitter struct {
	leftEmitter
}

func (e *outerEmitter) rightOnly(r int) {
	e.both(-1, r)
}

func (k JoinKind) newEmitter(mem memory.Allocator) emitter {
	inner := innerEmitter{left: array.NewInt64Builder(mem), right: array.NewInt64Builder(mem)}
	switch k {
	case LeftJoin:
		return &leftEmitter{inner}
	case OuterJoin:
		return &outerEmitter{leftEmitter{inner}}
	}
	return &inner
}

// Walks both sides in key order. Runs of equal keys produce every pairing of
// their rows.
func mergeRows(cmp Comparer, lidx, ridx rowIndex, lend, rend int, out emitter) {
	lp, rp := 0, 0
	for lp < lend && rp < rend {
		li, ri := lidx.at(lp), ridx.at(rp)
		switch {
		case cmp.Less(li, ri):
			out.leftOnly(li)
			lp++
		case cmp.Greater(li, ri):
			out.rightOnly(ri)
			rp++
		default:
			lrun := lp + 1
			for lrun < lend && !cmp.Greater(lidx.at(lrun), ri) {
				lrun++
			}
			rrun := rp + 1
			for rrun < rend && !cmp.Less(li, ridx.at(rrun)) {
				rrun++
			}
			for l := lp; l < lrun; l++ {
				for r := rp; r < rrun; r++ {
					out.both(lidx.at(l), ridx.at(r))
				}
			}
			lp, rp = lrun, rrun
		}
	}
	for ; lp < lend; lp++ {
		out.leftOnly(lidx.at(lp))
	}
	for ; rp < rend; rp++ {
		out.rightOnly(ridx.at(rp))
	}
}

// Selects the right columns that survive the join and renames the non-key
// ones. Key columns are kept only for outer joins, where they are unified
// with the left keys.
func projectRight(left, right arrow.Record, on []string, kind JoinKind, suffix string) (arrow.Record, error) {
	var fields []arrow.Field
	var cols []arrow.Array
	for i, col := range right.Columns() {
		f := right.Schema().Field(i)
		if slices.Contains(on, f.Name) {
			if kind != OuterJoin {
				continue
			}
		} else {
			f.Name += suffix
			if fieldIndex(left, f.Name) >= 0 {
				return nil, columnError(ErrDuplicateColumn, f.Name, "right", f.Type)
			}
		}
		fields = append(fields, f)
		cols = append(cols, col)
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, right.NumRows()), nil
}

// Join merges two batches on the given key columns. Each index is the
// permutation that orders its batch by the keys, or nil when the batch is
// already in key order. Non-key right columns are renamed with rightSuffix.
func Join(mem memory.Allocator, left, right arrow.Record, leftIndex, rightIndex arrow.Array, on []string, kind JoinKind, rightSuffix string) (arrow.Record, error) {
	if err := checkKinds(left.Schema()); err != nil {
		return nil, errors.Wrap(err, "left batch")
	}
	if err := checkKinds(right.Schema()); err != nil {
		return nil, errors.Wrap(err, "right batch")
	}
	cmp, err := MakeComparer(left, right, on)
	if err != nil {
		return nil, err
	}
	lidx, err := permutation(leftIndex, int(left.NumRows()))
	if err != nil {
		return nil, errors.Wrap(err, "left batch")
	}
	ridx, err := permutation(rightIndex, int(right.NumRows()))
	if err != nil {
		return nil, errors.Wrap(err, "right batch")
	}
	rproj, err := projectRight(left, right, on, kind, rightSuffix)
	if err != nil {
		return nil, err
	}
	defer rproj.Release()

	return Guard(func() (arrow.Record, error) {
		out := kind.newEmitter(mem)
		defer out.release()
		mergeRows(cmp, lidx, ridx, int(left.NumRows()), int(right.NumRows()), out)
		lrows, rrows, err := out.finish()
		if err != nil {
			return nil, err
		}
		slog.Debug("merged batches", "how", kind, "on", on,
			"left", left.NumRows(), "right", right.NumRows(), "rows", len(lrows))
		return assemble(mem, left, rproj, lrows, rrows, on, kind)
	})
}

func assemble(mem memory.Allocator, left, right arrow.Record, lrows, rrows []int, on []string, kind JoinKind) (arrow.Record, error) {
	lout, err := gather(mem, left, lrows)
	if err != nil {
		return nil, err
	}
	defer lout.Release()
	rout, err := gather(mem, right, rrows)
	if err != nil {
		return nil, err
	}
	defer rout.Release()

	fields := append([]arrow.Field{}, lout.Schema().Fields()...)
	cols := append([]arrow.Array{}, lout.Columns()...)
	var unified []arrow.Array
	defer func() {
		for _, c := range unified {
			c.Release()
		}
	}()
	if kind == OuterJoin {
		for _, name := range on {
			li, ri := fieldIndex(lout, name), fieldIndex(rout, name)
			col, err := unifyColumn(mem, lout.Column(li), rout.Column(ri))
			if err != nil {
				return nil, columnError(err, name, "", lout.Column(li).DataType())
			}
			unified = append(unified, col)
			cols[li] = col
			fields[li].Nullable = left.Schema().Field(li).Nullable || col.NullN() > 0
		}
	}
	for i, col := range rout.Columns() {
		f := rout.Schema().Field(i)
		if kind == OuterJoin && slices.Contains(on, f.Name) {
			continue
		}
		fields = append(fields, f)
		cols = append(cols, col)
	}
	md := withSortKeys(left.Schema().Metadata(), on)
	return array.NewRecord(arrow.NewSchema(fields, &md), cols, int64(len(lrows))), nil
}
