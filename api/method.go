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

// Package api contains the types shared between the image producer, the loader
// and the tools that inspect or serve load images.
package api

import (
	"fmt"
	"strings"
)

// Method identifies how the payload of a segment is turned into RAM contents.
//
// The numeric values here are not the on-flash codes: each table format maps
// its own codes onto these values.
type Method int

const (
	// MethodZero fills the whole segment with zeros; there is no payload.
	MethodZero Method = iota
	// MethodVerbatim copies the payload byte for byte.
	MethodVerbatim
	// MethodRunLengthZero decodes a zero run-length encoded payload.
	MethodRunLengthZero
	// MethodLZ77 decodes an LZ77 compressed payload.
	MethodLZ77
	// MethodUnknown is used for codes which a format does not define.
	MethodUnknown
)

var methodNames = map[Method]string{
	MethodZero:          "ZERO",
	MethodVerbatim:      "VERBATIM",
	MethodRunLengthZero: "ZERO_RLE",
	MethodLZ77:          "LZ77",
}

// String returns the name used for the method in reports and configs.
func (m Method) String() string {
	if n, ok := methodNames[m]; ok {
		return n
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(m))
}

// HasPayload returns true if segments using the method read bytes from their LMA.
func (m Method) HasPayload() bool {
	return m == MethodVerbatim || m == MethodRunLengthZero || m == MethodLZ77
}

// ParseMethod returns the Method with the given name, ignoring case.
func ParseMethod(s string) (Method, error) {
	for m, n := range methodNames {
		if strings.EqualFold(n, s) {
			return m, nil
		}
	}
	return MethodUnknown, fmt.Errorf("unknown method %q", s)
}

// MarshalText implements encoding.TextMarshaler so methods appear by name in JSON.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	v, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
