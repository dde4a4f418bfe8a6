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
	"fmt"

	"github.com/google/rwinit/api"
	"github.com/google/rwinit/memory"
)

// LZ77 is the decoder slot for LZ77 payloads.
//
// No producer emits LZ77 payloads yet and the stream layout is not fixed, so
// decoding always fails rather than leaving the region untouched. Targets
// with a real decoder replace this entry in their Set.
type LZ77 struct{}

// Decode implements Decoder.
func (LZ77) Decode(_ memory.Bus, dst, _, n uint32) (uint32, error) {
	return 0, fmt.Errorf("lz77 payload for 0x%08x+%d: %w", dst, n, api.ErrUnsupportedCodec)
}
