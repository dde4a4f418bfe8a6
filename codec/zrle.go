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

package codec

import (
	"github.com/google/rwinit/memory"
)

// maxRun is the longest run emitted by EncodeZeroRLE in a single token.
const maxRun = 254

// ZeroRLE decodes zero run-length encoded payloads.
//
// A non-zero byte is a literal. A zero byte starts a (value, count) token in
// which the zero itself is the value, so the token expands to count zeros.
// There is no way to express a single literal zero other than a run of one.
type ZeroRLE struct{}

// Decode implements Decoder. Runs which would overshoot n are clamped.
func (ZeroRLE) Decode(b memory.Bus, dst, src, n uint32) (uint32, error) {
	var consumed uint32
	for n > 0 {
		v, err := b.Read8(src + consumed)
		if err != nil {
			return consumed, err
		}
		consumed++
		if v != 0 {
			if err := b.Write8(dst, v); err != nil {
				return consumed, err
			}
			dst, n = dst+1, n-1
			continue
		}

		count, err := b.Read8(src + consumed)
		if err != nil {
			return consumed, err
		}
		consumed++
		run := uint32(count)
		if run > n {
			run = n
		}
		if err := memory.Fill(b, dst, v, run); err != nil {
			return consumed, err
		}
		dst, n = dst+run, n-run
	}
	return consumed, nil
}

// EncodeZeroRLE returns the zero run-length encoding of in.
func EncodeZeroRLE(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for i := 0; i < len(in); {
		if in[i] != 0 {
			out = append(out, in[i])
			i++
			continue
		}
		run := 0
		for i < len(in) && in[i] == 0 && run < maxRun {
			run++
			i++
		}
		out = append(out, 0, byte(run))
	}
	return out
}
