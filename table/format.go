// Copyright 2026 Google LLC. All Rights Reserved.
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

// Package table reads and writes the load tables which describe how RAM is
// initialised from flash.
//
// Two layouts exist. A flat table is a header followed by a fixed capacity
// array of items. A chain is a sequence of descriptors, each holding the
// address of the one written before it, walked from the most recent one.
package table

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/rwinit/api"
)

// Kind selects a table layout.
type Kind int

const (
	// FlatTable is a header with magic, size and CRC followed by items.
	FlatTable Kind = iota
	// Chain is a reverse linked list of descriptors terminated by a zero link.
	Chain
)

const (
	// DefaultFlatCapacity is the number of items a flat table may hold.
	DefaultFlatCapacity = 16
	// DefaultChainLimit bounds chain walks so that a corrupt link cannot loop forever.
	DefaultChainLimit = 256
)

var kindNames = map[Kind]string{
	FlatTable: "flat",
	Chain:     "chain",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the Kind with the given name.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(s, n) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown table format %q (expected flat or chain)", s)
}

// The two layouts disagree on method codes.
var (
	flatCodes = map[uint32]api.Method{
		0: api.MethodZero,
		1: api.MethodVerbatim,
		2: api.MethodRunLengthZero,
		3: api.MethodLZ77,
	}
	chainCodes = map[uint32]api.Method{
		1: api.MethodVerbatim,
		2: api.MethodZero,
		3: api.MethodRunLengthZero,
		4: api.MethodLZ77,
	}
)

// Format is a table layout together with the byte order of its fields.
type Format struct {
	Kind Kind
	// Order is the byte order of every field; nil means little endian.
	Order binary.ByteOrder
	// MaxEntries overrides DefaultFlatCapacity or DefaultChainLimit when non-zero.
	MaxEntries uint32
}

func (f Format) String() string {
	return fmt.Sprintf("%s/%s", f.Kind, f.order())
}

func (f Format) order() binary.ByteOrder {
	if f.Order == nil {
		return binary.LittleEndian
	}
	return f.Order
}

func (f Format) limit() uint32 {
	switch {
	case f.MaxEntries != 0:
		return f.MaxEntries
	case f.Kind == FlatTable:
		return DefaultFlatCapacity
	default:
		return DefaultChainLimit
	}
}

func (f Format) codes() map[uint32]api.Method {
	if f.Kind == FlatTable {
		return flatCodes
	}
	return chainCodes
}

// Method returns the method for an on-flash code, or api.MethodUnknown.
func (f Format) Method(code uint32) api.Method {
	if m, ok := f.codes()[code]; ok {
		return m
	}
	return api.MethodUnknown
}

// Code returns the on-flash code for m.
func (f Format) Code(m api.Method) (uint32, error) {
	for c, v := range f.codes() {
		if v == m {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%s format has no code for %v", f.Kind, m)
}
