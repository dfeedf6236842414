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

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/pkg/errors"
)

var (
	ErrMissingColumn       = errors.New("missing column")
	ErrIncompatibleType    = errors.New("incompatible column types")
	ErrUnsupportedType     = errors.New("unsupported column type")
	ErrUnsupportedJoinKind = errors.New("unsupported join kind")
	ErrAllocationFailure   = errors.New("allocation failure")
	ErrDuplicateColumn     = errors.New("duplicate column name")
	ErrInvalidIndex        = errors.New("invalid index")
	ErrNoKeyColumns        = errors.New("no key columns")
	ErrInvalidKeyName      = errors.New("invalid key column name")
)

// ColumnError reports a failure tied to a single column of a batch.
type ColumnError struct {
	Err    error
	Column string
	Side   string // "left", "right" or empty for single batch operations
	Type   arrow.DataType
}

func (e *ColumnError) Error() string {
	msg := fmt.Sprintf("%s: column '%s'", e.Err.Error(), e.Column)
	if e.Side != "" {
		msg = fmt.Sprintf("%s in %s batch", msg, e.Side)
	}
	if e.Type != nil {
		msg = fmt.Sprintf("%s (%s)", msg, e.Type)
	}
	return msg
}

func (e *ColumnError) Unwrap() error {
	return e.Err
}

func columnError(err error, column, side string, dt arrow.DataType) error {
	return &ColumnError{Err: err, Column: column, Side: side, Type: dt}
}
