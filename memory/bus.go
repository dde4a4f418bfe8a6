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

// Package memory provides the physical address space used by the loader and
// the alignment aware copy and fill primitives which operate on it.
package memory

import "fmt"

// WordSize is the widest transfer unit used by Copy and Fill.
const WordSize = 4

const wordMask = WordSize - 1

// Bus is a 32-bit physical address space.
//
// Word accesses must be naturally aligned; implementations fault otherwise.
type Bus interface {
	Read8(addr uint32) (uint8, error)
	Write8(addr uint32, v uint8) error
	Read32(addr uint32) (uint32, error)
	Write32(addr uint32, v uint32) error
}

// A FaultKind says why a bus access failed.
type FaultKind int

const (
	// FaultUnmapped is raised for addresses outside every mapped region.
	FaultUnmapped FaultKind = iota
	// FaultReadOnly is raised for writes to read-only regions.
	FaultReadOnly
	// FaultMisaligned is raised for word accesses which are not word aligned.
	FaultMisaligned
)

func (k FaultKind) String() string {
	switch k {
	case FaultUnmapped:
		return "unmapped"
	case FaultReadOnly:
		return "read-only"
	case FaultMisaligned:
		return "misaligned"
	}
	return fmt.Sprintf("FaultKind(%d)", int(k))
}

// FaultError is the emulated equivalent of a bus fault.
type FaultError struct {
	Op   string
	Addr uint32
	Kind FaultKind
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s fault on %s at 0x%08x", e.Kind, e.Op, e.Addr)
}

// ReadBytes fills buf with the bytes starting at addr.
func ReadBytes(b Bus, addr uint32, buf []byte) error {
	for i := range buf {
		v, err := b.Read8(addr + uint32(i))
		if err != nil {
			return err
		}
		buf[i] = v
	}
	return nil
}

// WriteBytes stores buf at addr.
func WriteBytes(b Bus, addr uint32, buf []byte) error {
	for i, v := range buf {
		if err := b.Write8(addr+uint32(i), v); err != nil {
			return err
		}
	}
	return nil
}
