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

package memory

// Counter wraps a Bus and counts the accesses made through it.
type Counter struct {
	Bus

	Reads8, Writes8   uint64
	Reads32, Writes32 uint64
}

// Read8 implements Bus.
func (c *Counter) Read8(addr uint32) (uint8, error) {
	c.Reads8++
	return c.Bus.Read8(addr)
}

// Write8 implements Bus.
func (c *Counter) Write8(addr uint32, v uint8) error {
	c.Writes8++
	return c.Bus.Write8(addr, v)
}

// Read32 implements Bus.
func (c *Counter) Read32(addr uint32) (uint32, error) {
	c.Reads32++
	return c.Bus.Read32(addr)
}

// Write32 implements Bus.
func (c *Counter) Write32(addr uint32, v uint32) error {
	c.Writes32++
	return c.Bus.Write32(addr, v)
}

// BytesWritten returns the number of bytes stored through the counter.
func (c *Counter) BytesWritten() uint64 {
	return c.Writes8 + WordSize*c.Writes32
}

// Reset zeroes all counts.
func (c *Counter) Reset() {
	c.Reads8, c.Writes8, c.Reads32, c.Writes32 = 0, 0, 0, 0
}
