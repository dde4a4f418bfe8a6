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

package dummy

import (
	"crypto/sha512"
	"fmt"

	"github.com/google/rwinit/memory"
)

const domain = "dummy"

// ImageMeasurement returns the measurement of a flash image, which is
// SHA512("dummy"||img).
func ImageMeasurement(img []byte) []byte {
	h := sha512.Sum512(append([]byte(domain), img...))
	return h[:]
}

// RAMMeasurement returns the measurement of the writable regions of a booted
// machine: SHA512 of "dummy" followed by the name and contents of each
// writable region, in address order.
func RAMMeasurement(ram *memory.RAM) ([]byte, error) {
	hasher := sha512.New()
	hasher.Write([]byte(domain))
	for _, r := range ram.Regions() {
		if r.ReadOnly {
			continue
		}
		b, err := ram.Snapshot(r.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot %q: %w", r.Name, err)
		}
		hasher.Write([]byte(r.Name))
		hasher.Write(b)
	}
	return hasher.Sum(nil), nil
}
