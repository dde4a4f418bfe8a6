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

package api

import (
	"errors"
	"fmt"
)

// Descriptor describes one contiguous region of RAM to initialise.
type Descriptor struct {
	// Method selects how the payload at LMA becomes the contents at VMA.
	Method Method
	// VMA is the runtime address of the region.
	VMA uint32
	// LMA is the address of the payload in non-volatile memory.
	LMA uint32
	// TotalSize is the decoded size of the region, including the BSS tail.
	TotalSize uint32
	// BSSSize is the length of the zero filled tail of the region.
	BSSSize uint32
	// StoredSize is the length of the payload at LMA, or 0 if the format
	// does not record it.
	StoredSize uint32
	// Link is the index of the entry in a flat table, or the address of the
	// previous descriptor in a chain (0 terminates the chain).
	Link uint32
	// Addr is the address the descriptor itself was read from.
	Addr uint32
	// Code is the raw method code as found in the table.
	Code uint32
}

// DataSize returns the number of bytes of real content at the start of the region.
func (d Descriptor) DataSize() uint32 {
	return d.TotalSize - d.BSSSize
}

// String returns a human-readable representation of the descriptor.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s vma=0x%08x lma=0x%08x total=%d bss=%d", d.Method, d.VMA, d.LMA, d.TotalSize, d.BSSSize)
}

// Validate checks the invariants which hold for every well formed descriptor.
func (d Descriptor) Validate() error {
	if d.BSSSize > d.TotalSize {
		return fmt.Errorf("bss size %d exceeds total size %d", d.BSSSize, d.TotalSize)
	}
	if uint64(d.VMA)+uint64(d.TotalSize) > 1<<32 {
		return fmt.Errorf("region 0x%08x+%d wraps the address space", d.VMA, d.TotalSize)
	}
	if !d.Method.HasPayload() || d.DataSize() == 0 {
		return nil
	}
	if d.VMA == d.LMA {
		return errors.New("vma and lma alias")
	}
	src := d.StoredSize
	if src == 0 && d.Method == MethodVerbatim {
		src = d.DataSize()
	}
	if uint64(d.LMA)+uint64(src) > 1<<32 {
		return fmt.Errorf("payload 0x%08x+%d wraps the address space", d.LMA, src)
	}
	if src > 0 && overlaps(d.VMA, d.TotalSize, d.LMA, src) {
		return fmt.Errorf("region 0x%08x+%d overlaps its payload at 0x%08x+%d", d.VMA, d.TotalSize, d.LMA, src)
	}
	return nil
}

// overlaps returns true if the ranges contain any bytes in common.
func overlaps(a, an, b, bn uint32) bool {
	return uint64(a)+uint64(an) > uint64(b) && uint64(b)+uint64(bn) > uint64(a)
}
