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

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Region describes one mapped window of the address space.
type Region struct {
	// Name identifies the region in configs and snapshots, e.g. "flash".
	Name string
	// Base is the first address of the region.
	Base uint32
	// Size is the length of the region in bytes.
	Size uint32
	// ReadOnly regions fault on bus writes. They can still be programmed with Program.
	ReadOnly bool
}

// end returns one past the last address of the region.
func (r Region) end() uint64 {
	return uint64(r.Base) + uint64(r.Size)
}

type mapping struct {
	Region
	data []byte
}

// RAM is an emulated address space made of non-overlapping regions.
//
// Multi-byte words are assembled in the configured byte order, and word
// accesses which are not aligned to WordSize fault as they would on a core
// without unaligned access support.
type RAM struct {
	order binary.ByteOrder
	maps  []*mapping
}

// CheckRegions returns the error NewRAM would return for regions, without
// allocating them.
func CheckRegions(regions ...Region) error {
	for i, reg := range regions {
		if reg.Size == 0 {
			return fmt.Errorf("region %q has zero size", reg.Name)
		}
		if reg.end() > 1<<32 {
			return fmt.Errorf("region %q wraps the address space", reg.Name)
		}
		for _, o := range regions[:i] {
			if o.Name == reg.Name {
				return fmt.Errorf("duplicate region name %q", reg.Name)
			}
			if uint64(reg.Base) < o.end() && uint64(o.Base) < reg.end() {
				return fmt.Errorf("region %q overlaps region %q", reg.Name, o.Name)
			}
		}
	}
	return nil
}

// MappedSize returns the number of bytes backing regions.
func MappedSize(regions ...Region) uint64 {
	var n uint64
	for _, r := range regions {
		n += uint64(r.Size)
	}
	return n
}

// NewRAM creates an address space with the given regions, all zero filled.
func NewRAM(order binary.ByteOrder, regions ...Region) (*RAM, error) {
	if order == nil {
		return nil, fmt.Errorf("byte order cannot be nil")
	}
	if err := CheckRegions(regions...); err != nil {
		return nil, err
	}
	r := &RAM{order: order}
	for _, reg := range regions {
		r.maps = append(r.maps, &mapping{Region: reg, data: make([]byte, reg.Size)})
	}
	sort.Slice(r.maps, func(i, j int) bool { return r.maps[i].Base < r.maps[j].Base })
	return r, nil
}

// ByteOrder returns the order in which words are assembled.
func (r *RAM) ByteOrder() binary.ByteOrder {
	return r.order
}

// Regions returns the regions of the address space, ordered by base address.
func (r *RAM) Regions() []Region {
	ret := make([]Region, 0, len(r.maps))
	for _, m := range r.maps {
		ret = append(ret, m.Region)
	}
	return ret
}

// find returns the mapping containing [addr, addr+n) and the offset of addr within it.
func (r *RAM) find(addr, n uint32) (*mapping, uint32, bool) {
	i := sort.Search(len(r.maps), func(i int) bool { return r.maps[i].end() > uint64(addr) })
	if i == len(r.maps) {
		return nil, 0, false
	}
	m := r.maps[i]
	if addr < m.Base || uint64(addr)+uint64(n) > m.end() {
		return nil, 0, false
	}
	return m, addr - m.Base, true
}

func (r *RAM) access(op string, addr, n uint32, write bool) ([]byte, error) {
	if n > 1 && addr&wordMask != 0 {
		return nil, &FaultError{Op: op, Addr: addr, Kind: FaultMisaligned}
	}
	m, off, ok := r.find(addr, n)
	if !ok {
		return nil, &FaultError{Op: op, Addr: addr, Kind: FaultUnmapped}
	}
	if write && m.ReadOnly {
		return nil, &FaultError{Op: op, Addr: addr, Kind: FaultReadOnly}
	}
	return m.data[off : off+n], nil
}

// Read8 implements Bus.
func (r *RAM) Read8(addr uint32) (uint8, error) {
	b, err := r.access("read8", addr, 1, false)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Write8 implements Bus.
func (r *RAM) Write8(addr uint32, v uint8) error {
	b, err := r.access("write8", addr, 1, true)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

// Read32 implements Bus.
func (r *RAM) Read32(addr uint32) (uint32, error) {
	b, err := r.access("read32", addr, WordSize, false)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

// Write32 implements Bus.
func (r *RAM) Write32(addr uint32, v uint32) error {
	b, err := r.access("write32", addr, WordSize, true)
	if err != nil {
		return err
	}
	r.order.PutUint32(b, v)
	return nil
}

// Program writes data at addr, ignoring the read-only flag of the target region.
// This is how an image gets into flash before the machine is powered up.
func (r *RAM) Program(addr uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if uint64(len(data)) > 1<<32 {
		return fmt.Errorf("%d bytes do not fit the address space", len(data))
	}
	m, off, ok := r.find(addr, uint32(len(data)))
	if !ok {
		return &FaultError{Op: "program", Addr: addr, Kind: FaultUnmapped}
	}
	copy(m.data[off:], data)
	return nil
}

// Snapshot returns a copy of the contents of the named region.
func (r *RAM) Snapshot(name string) ([]byte, error) {
	for _, m := range r.maps {
		if m.Name == name {
			ret := make([]byte, len(m.data))
			copy(ret, m.data)
			return ret, nil
		}
	}
	return nil, fmt.Errorf("no region named %q", name)
}
