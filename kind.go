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
	"github.com/pkg/errors"
)

// Kind is the closed set of column types the engine can sort, compare and
// gather.
type Kind int

const (
	KindInt8 Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat16
	KindFloat32
	KindFloat64
	KindString
	KindLargeString
	KindDictionary
)

var kindNames = [...]string{
	KindInt8:        "int8",
	KindInt16:       "int16",
	KindInt32:       "int32",
	KindInt64:       "int64",
	KindUint8:       "uint8",
	KindUint16:      "uint16",
	KindUint32:      "uint32",
	KindUint64:      "uint64",
	KindFloat16:     "float16",
	KindFloat32:     "float32",
	KindFloat64:     "float64",
	KindString:      "utf8",
	KindLargeString: "large_utf8",
	KindDictionary:  "dictionary",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Answers if values of the kind are read through a StringView.
func (k Kind) IsString() bool {
	return k == KindString || k == KindLargeString || k == KindDictionary
}

// KindOf maps an Arrow data type onto a Kind. Dictionaries are supported when
// they are integer indexed and hold utf8 values.
func KindOf(dt arrow.DataType) (Kind, error) {
	switch dt.ID() {
	case arrow.INT8:
		return KindInt8, nil
	case arrow.INT16:
		return KindInt16, nil
	case arrow.INT32:
		return KindInt32, nil
	case arrow.INT64:
		return KindInt64, nil
	case arrow.UINT8:
		return KindUint8, nil
	case arrow.UINT16:
		return KindUint16, nil
	case arrow.UINT32:
		return KindUint32, nil
	case arrow.UINT64:
		return KindUint64, nil
	case arrow.FLOAT16:
		return KindFloat16, nil
	case arrow.FLOAT32:
		return KindFloat32, nil
	case arrow.FLOAT64:
		return KindFloat64, nil
	case arrow.STRING:
		return KindString, nil
	case arrow.LARGE_STRING:
		return KindLargeString, nil
	case arrow.DICTIONARY:
		dict := dt.(*arrow.DictionaryType)
		if dict.ValueType.ID() != arrow.STRING {
			return 0, errors.Wrapf(ErrUnsupportedType, "dictionary of %s", dict.ValueType)
		}
		return KindDictionary, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedType, "%s", dt)
}
