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
	"github.com/pkg/errors"
)

// StringView reads utf8, large utf8 and dictionary encoded utf8 columns
// through one accessor.
type StringView interface {
	Len() int
	IsNull(i int) bool
	Value(i int) string
}

// NewStringView returns a StringView over the given array.
func NewStringView(arr arrow.Array) (StringView, error) {
	switch a := arr.(type) {
	case *array.String:
		return a, nil
	case *array.LargeString:
		return a, nil
	case *array.Dictionary:
		values, ok := a.Dictionary().(*array.String)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedType, "dictionary of %s", a.Dictionary().DataType())
		}
		return &dictStrings{dict: a, values: values}, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedType, "%s is not a string column", arr.DataType())
}

type dictStrings struct {
	dict   *array.Dictionary
	values *array.String
}

func (d *dictStrings) Len() int {
	return d.dict.Len()
}

// A row is null when its index slot is null or it refers to a null entry of
// the dictionary.
func (d *dictStrings) IsNull(i int) bool {
	if d.dict.IsNull(i) {
		return true
	}
	return d.values.IsNull(d.dict.GetValueIndex(i))
}

func (d *dictStrings) Value(i int) string {
	return d.values.Value(d.dict.GetValueIndex(i))
}

// Answers if any row of the column reads as null.
func hasNulls(arr arrow.Array) bool {
	if arr.NullN() > 0 {
		return true
	}
	if d, ok := arr.(*array.Dictionary); ok {
		return d.Dictionary().NullN() > 0
	}
	return false
}
