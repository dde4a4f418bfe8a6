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

// Package codec holds the payload decoders used to materialise segments, and
// the matching encoders used when building load images.
package codec

import (
	"fmt"

	"github.com/google/rwinit/api"
	"github.com/google/rwinit/memory"
)

// Decoder expands the payload at src into exactly n bytes at dst.
//
// The payload length is not known up front; Decode returns the number of
// payload bytes it consumed.
type Decoder interface {
	Decode(b memory.Bus, dst, src, n uint32) (consumed uint32, err error)
}

// Set maps methods onto the decoders which implement them.
type Set map[api.Method]Decoder

// Default returns the decoders available on every target.
func Default() Set {
	return Set{
		api.MethodRunLengthZero: ZeroRLE{},
		api.MethodLZ77:          LZ77{},
	}
}

// Lookup returns the decoder for m.
func (s Set) Lookup(m api.Method) (Decoder, error) {
	d, ok := s[m]
	if !ok || d == nil {
		return nil, fmt.Errorf("%v: %w", m, api.ErrUnsupportedCodec)
	}
	return d, nil
}
