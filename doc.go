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

// Package marrow sorts, indexes and merge-joins Arrow record batches.
//
// Batches are never modified. Every operation returns a new record that the
// caller owns and must release. Sort and Merge record the key columns they
// ordered by under the SortMetadataKey schema metadata key, so a later call on
// the same keys (or a prefix of them) skips the sort.
package marrow
